package reference

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"freightdesk/internal/util"
)

//go:embed ports.yaml
var defaultPortsYAML []byte

var reLocode = regexp.MustCompile(`^[A-Z]{2}[A-Z2-9]{3}$`)

type portsFile struct {
	Ports map[string][]string `yaml:"ports"`
}

// Ports maps port names, as printed on invoices, to UN/LOCODEs.
type Ports struct {
	byName map[string]string
	codes  map[string]struct{}
}

func DefaultPorts() *Ports {
	p := &Ports{byName: map[string]string{}, codes: map[string]struct{}{}}
	if err := p.merge(defaultPortsYAML); err != nil {
		panic(fmt.Sprintf("reference: embedded ports table: %v", err))
	}
	return p
}

// LoadPorts returns the built-in table, extended by the YAML file at path
// when one is given. Entries in the file win over the defaults.
func LoadPorts(path string) (*Ports, error) {
	p := DefaultPorts()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reference table %s: %w", path, err)
		}
		return nil, err
	}
	if err := p.merge(blob); err != nil {
		return nil, fmt.Errorf("reference table %s: %w", path, err)
	}
	return p, nil
}

func (p *Ports) merge(blob []byte) error {
	var f portsFile
	dec := yaml.NewDecoder(bytes.NewReader(blob))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return err
	}
	for code, names := range f.Ports {
		code = util.NormalizeCell(code)
		if !reLocode.MatchString(code) {
			return fmt.Errorf("invalid port code %q", code)
		}
		p.codes[code] = struct{}{}
		for _, n := range names {
			if key := portKey(n); key != "" {
				p.byName[key] = code
			}
		}
	}
	return nil
}

func (p *Ports) Len() int { return len(p.codes) }

// Code returns the UN/LOCODE for a port name, or "" when unknown. A value
// that already is a known code is returned as is. "SHANGHAI, CHINA" and
// "Shanghai (CN)" resolve through their first segment.
func (p *Ports) Code(name string) string {
	key := portKey(name)
	if key == "" {
		return ""
	}
	if _, ok := p.codes[key]; ok {
		return key
	}
	if code, ok := p.byName[key]; ok {
		return code
	}
	head := key
	if i := strings.IndexAny(head, ",(/"); i > 0 {
		head = strings.TrimSpace(head[:i])
	}
	if code, ok := p.byName[head]; ok {
		return code
	}
	return ""
}

func portKey(name string) string {
	return util.NormalizeSpaces(util.NormalizeCell(util.SafeString(name)))
}
