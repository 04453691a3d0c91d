package manifest

import "sort"

// Diff lists how the sources and artifacts of two manifests differ. All
// slices are sorted.
type Diff struct {
	AddedSources   []string `json:"added_sources,omitempty"`
	ChangedSources []string `json:"changed_sources,omitempty"`
	RemovedSources []string `json:"removed_sources,omitempty"`
	// StaleArtifacts were built from a changed or removed source.
	StaleArtifacts []string `json:"stale_artifacts,omitempty"`
	// DroppedArtifacts exist in prev but not in next.
	DroppedArtifacts []string `json:"dropped_artifacts,omitempty"`
	ConfigChanged    bool     `json:"config_changed,omitempty"`
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.AddedSources) == 0 && len(d.ChangedSources) == 0 && len(d.RemovedSources) == 0 &&
		len(d.StaleArtifacts) == 0 && len(d.DroppedArtifacts) == 0 && !d.ConfigChanged
}

// Compare diffs prev against next. A nil prev treats every source of next as
// added.
func Compare(prev, next *BuildManifest) Diff {
	var d Diff
	if next == nil {
		return d
	}
	if prev == nil {
		prev = New("", next.Timestamp)
	} else {
		d.ConfigChanged = prev.Inputs.ConfigHash != next.Inputs.ConfigHash
	}

	touched := map[string]bool{}
	for src, fp := range next.Inputs.Sources {
		old, ok := prev.Inputs.Sources[src]
		switch {
		case !ok:
			d.AddedSources = append(d.AddedSources, src)
		case old != fp:
			d.ChangedSources = append(d.ChangedSources, src)
			touched[src] = true
		}
	}
	for src := range prev.Inputs.Sources {
		if _, ok := next.Inputs.Sources[src]; !ok {
			d.RemovedSources = append(d.RemovedSources, src)
			touched[src] = true
		}
	}

	for artifact, sources := range prev.Outputs.Artifacts {
		if _, ok := next.Outputs.Artifacts[artifact]; !ok {
			d.DroppedArtifacts = append(d.DroppedArtifacts, artifact)
			continue
		}
		for _, src := range sources {
			if touched[src] {
				d.StaleArtifacts = append(d.StaleArtifacts, artifact)
				break
			}
		}
	}

	sort.Strings(d.AddedSources)
	sort.Strings(d.ChangedSources)
	sort.Strings(d.RemovedSources)
	sort.Strings(d.StaleArtifacts)
	sort.Strings(d.DroppedArtifacts)
	return d
}
