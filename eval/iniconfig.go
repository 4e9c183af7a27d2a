package eval

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimingSection is the INI section of a DRAMsim3 configuration that holds
// the timing parameters this package overrides.
const TimingSection = "timing"

// StructuredConfig is a parsed INI-style configuration: named sections of
// key/value pairs. Section and key insertion order is preserved, so a
// parse/serialize round trip keeps entries where they were.
type StructuredConfig struct {
	order    []string
	sections map[string]*configSection
}

type configSection struct {
	order  []string
	values map[string]string
}

// NewStructuredConfig returns an empty configuration.
func NewStructuredConfig() *StructuredConfig {
	return &StructuredConfig{sections: make(map[string]*configSection)}
}

// ParseConfig reads an INI-style configuration. Blank lines and lines
// starting with '#' or ';' are skipped, "[name]" opens a section, and
// "key = value" lines are split on the first '='. A key/value line seen
// before any section header has no home and is dropped.
func ParseConfig(r io.Reader) (*StructuredConfig, error) {
	cfg := NewStructuredConfig()
	current := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = line[1 : len(line)-1]
			cfg.ensureSection(current)
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if current == "" {
			logrus.Debugf("dropping key/value line before any section header: %q", line)
			continue
		}
		cfg.Set(current, strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// ParseConfigFile parses the INI configuration at path.
func ParseConfigFile(path string) (*StructuredConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()
	return ParseConfig(f)
}

func (c *StructuredConfig) ensureSection(name string) *configSection {
	if s, ok := c.sections[name]; ok {
		return s
	}
	s := &configSection{values: make(map[string]string)}
	c.sections[name] = s
	c.order = append(c.order, name)
	return s
}

// Sections returns section names in insertion order.
func (c *StructuredConfig) Sections() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Keys returns the keys of a section in insertion order, or nil if the
// section does not exist.
func (c *StructuredConfig) Keys(section string) []string {
	s, ok := c.sections[section]
	if !ok {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the value of section/key and whether it exists.
func (c *StructuredConfig) Get(section, key string) (string, bool) {
	s, ok := c.sections[section]
	if !ok {
		return "", false
	}
	value, ok := s.values[key]
	return value, ok
}

// Set stores section/key = value, creating the section if needed.
func (c *StructuredConfig) Set(section, key, value string) {
	s := c.ensureSection(section)
	if _, exists := s.values[key]; !exists {
		s.order = append(s.order, key)
	}
	s.values[key] = value
}

// Clone deep-copies the configuration.
func (c *StructuredConfig) Clone() *StructuredConfig {
	out := NewStructuredConfig()
	for _, name := range c.order {
		src := c.sections[name]
		for _, key := range src.order {
			out.Set(name, key, src.values[key])
		}
	}
	return out
}

// Serialize renders the configuration back into INI text: a "[section]"
// header, one "key = value" line per entry, and a blank line after each
// section.
func (c *StructuredConfig) Serialize() string {
	var b strings.Builder
	for _, name := range c.order {
		fmt.Fprintf(&b, "[%s]\n", name)
		s := c.sections[name]
		for _, key := range s.order {
			fmt.Fprintf(&b, "%s = %s\n", key, s.values[key])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteFile serializes the configuration to path.
func (c *StructuredConfig) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(c.Serialize()), 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// ApplyOverrides returns a deep copy of the configuration with the timing
// section's entries replaced for every supplied parameter. Parameters whose
// key is absent from the base timing section are skipped: the base config
// defines which knobs exist.
func (c *StructuredConfig) ApplyOverrides(overrides TimingParams) *StructuredConfig {
	out := c.Clone()
	for _, name := range ParamOrder {
		value, ok := overrides[name]
		if !ok {
			continue
		}
		if _, exists := out.Get(TimingSection, string(name)); !exists {
			logrus.Warnf("override %s ignored: no such key in [%s] section", name, TimingSection)
			continue
		}
		out.Set(TimingSection, string(name), strconv.Itoa(value))
	}
	return out
}

// TimingFallback reads the timing parameters this package knows about from
// the configuration's timing section. Missing or non-numeric entries are
// simply absent from the result.
func (c *StructuredConfig) TimingFallback() TimingParams {
	out := make(TimingParams, len(ParamOrder))
	for _, name := range ParamOrder {
		raw, ok := c.Get(TimingSection, string(name))
		if !ok {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			logrus.Warnf("timing key %s has non-integer value %q, ignoring", name, raw)
			continue
		}
		out[name] = value
	}
	return out
}
