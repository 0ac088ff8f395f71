// Package milhdbk217f implements the MIL-HDBK-217F hazard rate models for
// relays. Hazard rates are in failures per million hours.
package milhdbk217f

import (
	"fmt"
	"math"
	"strings"
)

// Environment is an active operating environment, numbered as in the
// handbook tables starting at 1.
type Environment int

// Handbook environments.
const (
	EnvGB Environment = iota + 1
	EnvGF
	EnvGM
	EnvNS
	EnvNU
	EnvAIC
	EnvAIF
	EnvAUC
	EnvAUF
	EnvARW
	EnvSF
	EnvMF
	EnvML
	EnvCL
)

var envNames = []string{"GB", "GF", "GM", "NS", "NU", "AIC", "AIF", "AUC", "AUF", "ARW", "SF", "MF", "ML", "CL"}

func (e Environment) String() string {
	if e < EnvGB || e > EnvCL {
		return fmt.Sprintf("environment(%d)", int(e))
	}
	return envNames[e-1]
}

// ParseEnvironment resolves a handbook abbreviation such as "GF".
func ParseEnvironment(name string) (Environment, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, v := range envNames {
		if v == n {
			return Environment(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown environment %q", name)
}

// Harsh reports whether e counts as a harsh environment for derating.
func (e Environment) Harsh() bool {
	switch e {
	case EnvGB, EnvGF, EnvNS, EnvSF:
		return false
	default:
		return true
	}
}

// Relay subcategories.
const (
	SubcategoryMechanical = 1
	SubcategorySolidState = 2
)

// Parts count base hazard rates by subcategory, type, and environment.
var partCountLambdaB = map[int][][]float64{
	SubcategoryMechanical: {
		{0.13, 0.28, 2.1, 1.1, 3.8, 1.1, 1.4, 1.9, 2.0, 7.0, 0.66, 3.5, 10.0, 0.0},
		{0.43, 0.89, 6.9, 3.6, 12.0, 3.4, 4.4, 6.2, 6.7, 22.0, 0.21, 11.0, 32.0, 0.0},
		{0.13, 0.26, 2.1, 1.1, 3.8, 1.1, 1.4, 1.9, 2.0, 7.0, 0.66, 3.5, 10.0, 0.0},
		{0.11, 0.23, 1.8, 0.92, 3.3, 0.96, 1.2, 2.1, 2.3, 6.5, 0.54, 3.0, 9.0, 0.0},
		{0.29, 0.60, 4.8, 2.4, 8.2, 2.3, 2.9, 4.1, 4.5, 15.0, 0.14, 7.6, 22.0, 0.0},
		{0.88, 1.8, 14.0, 7.4, 26.0, 7.1, 9.1, 13.0, 14.0, 46.0, 0.44, 24.0, 67.0, 0.0},
	},
	SubcategorySolidState: {
		{0.40, 1.2, 4.8, 2.4, 6.8, 4.8, 7.6, 8.4, 13.0, 9.2, 0.16, 4.8, 13.0, 240.0},
		{0.50, 1.5, 6.0, 3.0, 8.5, 5.0, 9.5, 11.0, 16.0, 12.0, 0.20, 5.0, 17.0, 300.0},
	},
}

var partCountPiQ = map[int][]float64{
	SubcategoryMechanical: {0.6, 3.0, 9.0},
	SubcategorySolidState: {0.0, 1.0, 4.0},
}

var (
	partStressPiQ = []float64{0.10, 0.30, 0.45, 0.60, 1.0, 1.5, 3.0, 3.0}
	partStressPiE = map[int][]float64{
		SubcategoryMechanical: {1.0, 2.0, 15.0, 8.0, 27.0, 7.0, 9.0, 11.0, 12.0, 46.0, 0.50, 25.0, 66.0, 0.0},
		SubcategorySolidState: {1.0, 3.0, 13.0, 6.0, 19.0, 5.0, 8.0, 16.0, 19.0, 25.0, 0.50, 14.0, 36.0, 0.0},
	}
	partStressPiC = []float64{1.0, 1.5, 1.75, 2.0, 2.5, 3.0, 4.25, 5.5, 8.0}
	// Solid state and hybrid base rates by type.
	solidStateLambdaB = []float64{0.40, 0.50, 0.50}
)

// nonMILQuality is the quality index of non-established-reliability parts.
const nonMILQuality = 7

// Result carries the factors and the active hazard rate of one calculation.
type Result struct {
	LambdaB    float64 `json:"lambda_b" yaml:"lambda_b"`
	PiQ        float64 `json:"pi_q" yaml:"pi_q"`
	PiE        float64 `json:"pi_e,omitempty" yaml:"pi_e,omitempty"`
	PiL        float64 `json:"pi_l,omitempty" yaml:"pi_l,omitempty"`
	PiC        float64 `json:"pi_c,omitempty" yaml:"pi_c,omitempty"`
	PiCYC      float64 `json:"pi_cyc,omitempty" yaml:"pi_cyc,omitempty"`
	PiF        float64 `json:"pi_f,omitempty" yaml:"pi_f,omitempty"`
	HazardRate float64 `json:"hazard_rate_active" yaml:"hazard_rate_active"`
	// Warnings names every factor that came out zero.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// PerHour converts the hazard rate of quantity identical parts to failures
// per hour.
func (r Result) PerHour(quantity int) float64 {
	if quantity < 1 {
		quantity = 1
	}
	return r.HazardRate * float64(quantity) / 1e6
}

func (r *Result) warnZero(name string, value float64, context string) {
	if value <= 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s is 0.0 for %s", name, context))
	}
}

// PartCount describes a relay for the parts count method.
type PartCount struct {
	Subcategory int         `json:"subcategory_id" yaml:"subcategory_id"`
	TypeID      int         `json:"type_id" yaml:"type_id"`
	QualityID   int         `json:"quality_id" yaml:"quality_id"`
	Environment Environment `json:"environment_active_id" yaml:"environment_active_id"`
}

// CalculatePartCount returns λ = λb × πQ. Table lookups that miss yield a
// zero factor and a warning, matching the handbook worksheets.
func CalculatePartCount(in PartCount) Result {
	var res Result
	res.LambdaB = lookup2(partCountLambdaB[in.Subcategory], in.TypeID, int(in.Environment))
	res.PiQ = lookup(partCountPiQ[in.Subcategory], in.QualityID)
	res.warnZero("lambda_b", res.LambdaB, fmt.Sprintf("subcategory %d, type %d, environment %s", in.Subcategory, in.TypeID, in.Environment))
	res.warnZero("pi_q", res.PiQ, fmt.Sprintf("subcategory %d, quality %d", in.Subcategory, in.QualityID))
	res.HazardRate = res.LambdaB * res.PiQ
	return res
}

// Insulation ratings of mechanical relays.
const (
	Insulation85C  = 1
	Insulation125C = 2
)

// Load types of mechanical relays.
const (
	LoadResistive = 1
	LoadInductive = 2
	LoadLamp      = 3
)

// PartStress describes a relay for the part stress method.
type PartStress struct {
	Subcategory      int         `json:"subcategory_id" yaml:"subcategory_id"`
	TypeID           int         `json:"type_id" yaml:"type_id"`
	QualityID        int         `json:"quality_id" yaml:"quality_id"`
	Environment      Environment `json:"environment_active_id" yaml:"environment_active_id"`
	InsulationID     int         `json:"insulation_id" yaml:"insulation_id"`
	TemperatureC     float64     `json:"temperature_active" yaml:"temperature_active"`
	LoadTypeID       int         `json:"load_type_id" yaml:"load_type_id"`
	CurrentRated     float64     `json:"current_rated" yaml:"current_rated"`
	CurrentOperating float64     `json:"current_operating" yaml:"current_operating"`
	ContactFormID    int         `json:"contact_form_id" yaml:"contact_form_id"`
	CyclesPerHour    float64     `json:"n_cycles" yaml:"n_cycles"`
	ContactRatingID  int         `json:"contact_rating_id" yaml:"contact_rating_id"`
	ApplicationID    int         `json:"application_id" yaml:"application_id"`
	ConstructionID   int         `json:"construction_id" yaml:"construction_id"`
	// PiF overrides the application and construction table when positive.
	PiF float64 `json:"pi_f,omitempty" yaml:"pi_f,omitempty"`
}

// CalculatePartStress returns λ = λb × πL × πC × πCYC × πF × πQ × πE for
// mechanical relays and λ = λb × πQ × πE for solid state relays.
func CalculatePartStress(in PartStress) (Result, error) {
	var res Result
	res.PiQ = lookup(partStressPiQ, in.QualityID)
	res.PiE = lookup(partStressPiE[in.Subcategory], int(in.Environment))

	switch in.Subcategory {
	case SubcategoryMechanical:
		if in.CurrentRated <= 0 {
			return Result{}, fmt.Errorf("relay part stress: rated current must be positive, got %g", in.CurrentRated)
		}
		if in.CurrentOperating < 0 {
			return Result{}, fmt.Errorf("relay part stress: operating current must not be negative, got %g", in.CurrentOperating)
		}
		res.LambdaB = mechanicalLambdaB(in.InsulationID, in.TemperatureC)
		res.PiL = loadStressFactor(in.LoadTypeID, in.CurrentOperating/in.CurrentRated)
		res.PiC = lookup(partStressPiC, in.ContactFormID)
		res.PiCYC = cyclingFactor(in.QualityID, in.CyclesPerHour)
		res.PiF = in.PiF
		if res.PiF <= 0 {
			res.PiF = applicationFactor(in.ContactRatingID, in.ApplicationID, in.ConstructionID, in.QualityID == nonMILQuality)
		}
		res.warnZero("pi_c", res.PiC, fmt.Sprintf("contact form %d", in.ContactFormID))
		res.warnZero("pi_f", res.PiF, fmt.Sprintf("contact rating %d, application %d, construction %d", in.ContactRatingID, in.ApplicationID, in.ConstructionID))
		res.HazardRate = res.LambdaB * res.PiL * res.PiC * res.PiCYC * res.PiF * res.PiQ * res.PiE
	case SubcategorySolidState:
		res.LambdaB = lookup(solidStateLambdaB, in.TypeID)
		res.warnZero("lambda_b", res.LambdaB, fmt.Sprintf("type %d", in.TypeID))
		res.HazardRate = res.LambdaB * res.PiQ * res.PiE
	default:
		return Result{}, fmt.Errorf("relay part stress: unknown subcategory %d", in.Subcategory)
	}
	res.warnZero("pi_q", res.PiQ, fmt.Sprintf("quality %d", in.QualityID))
	res.warnZero("pi_e", res.PiE, fmt.Sprintf("environment %s", in.Environment))
	return res, nil
}

// mechanicalLambdaB is K1·exp(((T+273)/Tref)^K2) for the insulation rating.
func mechanicalLambdaB(insulation int, tempC float64) float64 {
	k1, k2, tref := 0.00555, 15.7, 352.0
	if insulation == Insulation125C {
		k1, k2, tref = 0.0054, 10.4, 377.0
	}
	return k1 * math.Exp(math.Pow((tempC+273.0)/tref, k2))
}

// loadStressFactor is exp((S/K)^2) with K set by the load type.
func loadStressFactor(loadType int, ratio float64) float64 {
	k := 0.2
	switch loadType {
	case LoadResistive:
		k = 0.8
	case LoadInductive:
		k = 0.4
	}
	return math.Exp(math.Pow(ratio/k, 2))
}

func cyclingFactor(quality int, cycles float64) float64 {
	if quality == nonMILQuality {
		switch {
		case cycles > 1000:
			return math.Pow(cycles/100.0, 2)
		case cycles >= 10:
			return cycles / 10.0
		default:
			return 1.0
		}
	}
	if cycles >= 1.0 {
		return cycles / 10.0
	}
	return 0.1
}

// applicationPiF holds πF by contact rating, application, and construction
// as {MIL-SPEC, non-MIL} pairs for signal current and 0-5 A relays.
var applicationPiF = map[[3]int][2]float64{
	{1, 1, 1}: {4, 8}, {1, 1, 2}: {6, 18}, {1, 1, 3}: {1, 3}, {1, 1, 4}: {4, 8}, {1, 1, 5}: {7, 14}, {1, 1, 6}: {7, 4},
	{2, 1, 1}: {3, 6}, {2, 1, 2}: {5, 10}, {2, 1, 3}: {6, 12},
	{2, 2, 1}: {5, 10}, {2, 2, 2}: {5, 10}, {2, 2, 3}: {2, 6}, {2, 2, 4}: {6, 12}, {2, 2, 5}: {100, 100}, {2, 2, 6}: {10, 20},
	{2, 3, 1}: {10, 20}, {2, 3, 2}: {100, 100},
	{2, 4, 1}: {6, 12}, {2, 4, 2}: {1, 3},
	{2, 5, 1}: {25, 0}, {2, 5, 2}: {25, 0}, {2, 5, 3}: {6, 0},
	{2, 6, 1}: {10, 20},
	{2, 8, 1}: {10, 20}, {2, 8, 2}: {5, 10}, {2, 8, 3}: {5, 10},
}

func applicationFactor(rating, application, construction int, nonMIL bool) float64 {
	if rating == 2 && application == 7 {
		if nonMIL {
			return 12
		}
		return 9
	}
	v, ok := applicationPiF[[3]int{rating, application, construction}]
	if !ok {
		return 0
	}
	if nonMIL {
		return v[1]
	}
	return v[0]
}

func lookup(table []float64, id int) float64 {
	if id < 1 || id > len(table) {
		return 0
	}
	return table[id-1]
}

func lookup2(table [][]float64, row, col int) float64 {
	if row < 1 || row > len(table) {
		return 0
	}
	return lookup(table[row-1], col)
}

// Overstressed reports whether the operating current ratio exceeds the
// derating limit: 75% of rated in harsh environments, 90% otherwise.
func Overstressed(env Environment, operating, rated float64) (bool, string) {
	if rated <= 0 {
		return false, ""
	}
	limit, kind := 0.9, "mild"
	if env.Harsh() {
		limit, kind = 0.75, "harsh"
	}
	if operating/rated > limit {
		return true, fmt.Sprintf("operating current > %.1f%% rated current in %s environment", limit*100, kind)
	}
	return false, ""
}
