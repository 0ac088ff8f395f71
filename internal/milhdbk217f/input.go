package milhdbk217f

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Method selects the handbook prediction method.
type Method string

const (
	MethodPartCount  Method = "count"
	MethodPartStress Method = "stress"
)

// Input is a relay prediction request as read from YAML:
//
//	method: stress
//	quantity: 2
//	part_stress:
//	  subcategory_id: 1
//	  environment_active_id: GF
//	  ...
type Input struct {
	Method     Method      `yaml:"method" json:"method"`
	Quantity   int         `yaml:"quantity" json:"quantity"`
	PartCount  *PartCount  `yaml:"part_count,omitempty" json:"part_count,omitempty"`
	PartStress *PartStress `yaml:"part_stress,omitempty" json:"part_stress,omitempty"`
}

// ParseInput decodes a YAML relay input.
func ParseInput(r io.Reader) (Input, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var in Input
	if err := dec.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return Input{}, errors.New("relay input: empty document")
		}
		return Input{}, fmt.Errorf("relay input: %w", err)
	}
	if in.Method == "" {
		in.Method = MethodPartStress
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}
	return in, nil
}

// Calculate runs the selected method.
func (in Input) Calculate() (Result, error) {
	switch in.Method {
	case MethodPartCount:
		if in.PartCount == nil {
			return Result{}, errors.New("relay input: part_count section required for method count")
		}
		return CalculatePartCount(*in.PartCount), nil
	case MethodPartStress:
		if in.PartStress == nil {
			return Result{}, errors.New("relay input: part_stress section required for method stress")
		}
		return CalculatePartStress(*in.PartStress)
	default:
		return Result{}, fmt.Errorf("relay input: unknown method %q", in.Method)
	}
}

// ItemHazardRate returns the hazard rate of all parts in failures per hour.
func (in Input) ItemHazardRate() (float64, Result, error) {
	res, err := in.Calculate()
	if err != nil {
		return 0, Result{}, err
	}
	return res.PerHour(in.Quantity), res, nil
}

// UnmarshalYAML accepts a handbook table index or an abbreviation like GF.
func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("environment: expected scalar at line %d", value.Line)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value.Value)); err == nil {
		env := Environment(n)
		if env < EnvGB || env > EnvCL {
			return fmt.Errorf("environment: index %d out of range", n)
		}
		*e = env
		return nil
	}
	env, err := ParseEnvironment(value.Value)
	if err != nil {
		return err
	}
	*e = env
	return nil
}

// MarshalYAML writes the abbreviation.
func (e Environment) MarshalYAML() (any, error) {
	return e.String(), nil
}
