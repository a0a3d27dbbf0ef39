// Package accuracy runs offline detection benchmarks: recorded samples with
// known keyword counts are pushed through the recognition pipeline under a
// grid of dedup strategies and recognition variants, and the resulting
// detection counts are scored against the expected ones.
package accuracy

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes one benchmark: the samples to evaluate and how often to
// repeat each evaluation.
type Manifest struct {
	// ModelPath is the recognizer model directory.
	ModelPath string `yaml:"model_path"`

	// SampleRate is the rate every sample file must be recorded at.
	// Defaults to 16000.
	SampleRate int `yaml:"sample_rate"`

	// Rounds is how often each sample is evaluated per grid cell.
	// Defaults to 3.
	Rounds int `yaml:"rounds"`

	// Samples lists the recordings to evaluate.
	Samples []Sample `yaml:"samples"`
}

// Sample is one recorded WAV file with the keyword it contains and how many
// times the keyword is spoken.
type Sample struct {
	// File is the path to a mono WAV recording at the manifest sample rate.
	File string `yaml:"file"`

	// Keyword spoken in the recording.
	Keyword string `yaml:"keyword"`

	// Expected is the number of times the keyword is spoken.
	Expected int `yaml:"expected"`
}

// LoadManifest reads and validates a benchmark manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("accuracy: open manifest %q: %w", path, err)
	}
	defer f.Close()

	m, err := LoadManifestFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("accuracy: manifest %q: %w", path, err)
	}
	return m, nil
}

// LoadManifestFromReader decodes and validates a manifest from r.
func LoadManifestFromReader(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if m.SampleRate == 0 {
		m.SampleRate = 16000
	}
	if m.Rounds == 0 {
		m.Rounds = 3
	}

	var errs []error
	if m.ModelPath == "" {
		errs = append(errs, errors.New("model_path is required"))
	}
	if m.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("sample_rate %d must be positive", m.SampleRate))
	}
	if m.Rounds < 0 {
		errs = append(errs, fmt.Errorf("rounds %d must be positive", m.Rounds))
	}
	if len(m.Samples) == 0 {
		errs = append(errs, errors.New("at least one sample is required"))
	}
	for i, s := range m.Samples {
		prefix := fmt.Sprintf("samples[%d]", i)
		if s.File == "" {
			errs = append(errs, fmt.Errorf("%s.file is required", prefix))
		}
		if s.Keyword == "" {
			errs = append(errs, fmt.Errorf("%s.keyword is required", prefix))
		}
		if s.Expected <= 0 {
			errs = append(errs, fmt.Errorf("%s.expected must be positive", prefix))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}
