package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	MappingsChanged bool          // true if any keyword was added, removed, or rebound
	MappingChanges  []MappingDiff // per-keyword diffs
	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// MappingDiff describes what changed for a single keyword between two configs.
type MappingDiff struct {
	Keyword      string
	SoundChanged bool
	Added        bool
	Removed      bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; audio geometry
// and recognizer model changes require a new run and are not reported here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	oldMaps := make(map[string]string, len(old.Mappings))
	for _, m := range old.Mappings {
		oldMaps[m.Keyword] = m.Sound
	}
	newMaps := make(map[string]string, len(new.Mappings))
	for _, m := range new.Mappings {
		newMaps[m.Keyword] = m.Sound
	}

	// Detect rebound and removed keywords, in old config order.
	for _, m := range old.Mappings {
		newSound, exists := newMaps[m.Keyword]
		if !exists {
			d.MappingChanges = append(d.MappingChanges, MappingDiff{Keyword: m.Keyword, Removed: true})
			d.MappingsChanged = true
			continue
		}
		if newSound != m.Sound {
			d.MappingChanges = append(d.MappingChanges, MappingDiff{Keyword: m.Keyword, SoundChanged: true})
			d.MappingsChanged = true
		}
	}

	// Detect added keywords, in new config order.
	for _, m := range new.Mappings {
		if _, exists := oldMaps[m.Keyword]; !exists {
			d.MappingChanges = append(d.MappingChanges, MappingDiff{Keyword: m.Keyword, Added: true})
			d.MappingsChanged = true
		}
	}

	return d
}
