package history

import (
	"fmt"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
)

// WarningFromError converts a build warning into its stored form.
func WarningFromError(err error) Warning {
	ce, ok := lderrors.AsClassified(err)
	if !ok {
		return Warning{Category: string(lderrors.CategoryInternal), Message: err.Error()}
	}
	w := Warning{Category: string(ce.Category()), Message: ce.Message()}
	if ctx := ce.Context(); len(ctx) > 0 {
		w.Context = make(map[string]string, len(ctx))
		for k, v := range ctx {
			w.Context[k] = fmt.Sprint(v)
		}
	}
	if cause := ce.Unwrap(); cause != nil {
		w.Message += ": " + cause.Error()
	}
	return w
}
