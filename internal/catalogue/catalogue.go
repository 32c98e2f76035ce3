// Package catalogue holds the static course syllabus: subjects made of
// chapters made of lectures and quizzes. A Catalogue is built once at
// startup and never changes afterwards; every accessor returns copies.
package catalogue

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed syllabus.yaml
var defaultSyllabus []byte

// ErrSubjectNotFound is returned for an unknown subject key
var ErrSubjectNotFound = errors.New("subject not found")

// ItemType distinguishes lectures from quizzes
type ItemType string

const (
	Lecture ItemType = "Lecture"
	Quiz    ItemType = "Quiz"
)

// Item is a single learning item inside a chapter
type Item struct {
	Type ItemType `yaml:"type" json:"type"`
	Text string   `yaml:"text" json:"text"`
}

// Chapter is an ordered group of items
type Chapter struct {
	Title  string   `yaml:"title" json:"title"`
	Badges []string `yaml:"badges" json:"badges"`
	Items  []Item   `yaml:"items" json:"items"`
}

// Subject is a top-level catalogue entry addressed by Key
type Subject struct {
	Key       string    `yaml:"key" json:"key"`
	Title     string    `yaml:"title" json:"title"`
	Icon      string    `yaml:"icon" json:"icon"`
	IconClass string    `yaml:"icon_class" json:"ic"`
	Color     string    `yaml:"color" json:"color"`
	Chapters  []Chapter `yaml:"chapters" json:"chapters"`
}

// Catalogue is the immutable, ordered list of subjects
type Catalogue struct {
	subjects []Subject
	byKey    map[string]int
}

type document struct {
	Subjects []Subject `yaml:"subjects"`
}

// Default returns the catalogue compiled into the binary
func Default() (*Catalogue, error) {
	return Load(bytes.NewReader(defaultSyllabus))
}

// LoadFile reads a catalogue from a YAML file
func LoadFile(path string) (*Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalogue: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load parses and validates a YAML catalogue
func Load(r io.Reader) (*Catalogue, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	c := &Catalogue{
		subjects: doc.Subjects,
		byKey:    make(map[string]int, len(doc.Subjects)),
	}

	for i, s := range doc.Subjects {
		if s.Key == "" {
			return nil, fmt.Errorf("subject %d has no key", i)
		}
		if _, dup := c.byKey[s.Key]; dup {
			return nil, fmt.Errorf("duplicate subject key %q", s.Key)
		}
		for ci, ch := range s.Chapters {
			for ii, item := range ch.Items {
				if item.Type != Lecture && item.Type != Quiz {
					return nil, fmt.Errorf("subject %q chapter %d item %d: unknown type %q", s.Key, ci, ii, item.Type)
				}
			}
		}
		c.byKey[s.Key] = i
	}

	return c, nil
}

// Subjects returns the full catalogue in order
func (c *Catalogue) Subjects() []Subject {
	out := make([]Subject, len(c.subjects))
	for i, s := range c.subjects {
		out[i] = s.clone()
	}
	return out
}

// Subject returns the entry for key or ErrSubjectNotFound
func (c *Catalogue) Subject(key string) (Subject, error) {
	i, ok := c.byKey[key]
	if !ok {
		return Subject{}, ErrSubjectNotFound
	}
	return c.subjects[i].clone(), nil
}

// Has reports whether key names a subject
func (c *Catalogue) Has(key string) bool {
	_, ok := c.byKey[key]
	return ok
}

// Len returns the number of subjects
func (c *Catalogue) Len() int {
	return len(c.subjects)
}

func (s Subject) clone() Subject {
	out := s
	out.Chapters = make([]Chapter, len(s.Chapters))
	for i, ch := range s.Chapters {
		out.Chapters[i] = Chapter{
			Title:  ch.Title,
			Badges: append([]string(nil), ch.Badges...),
			Items:  append([]Item(nil), ch.Items...),
		}
	}
	return out
}
