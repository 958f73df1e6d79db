package search

// Wire names of the supported query parameters.
const (
	ParamJobTitle          = "was"
	ParamLocation          = "wo"
	ParamOccupationalField = "berufsfeld"
	ParamEmployer          = "arbeitgeber"
	ParamRadius            = "umkreis"
	ParamPage              = "page"
	ParamSize              = "size"
	ParamPublishedSince    = "veroeffentlichtseit"
	ParamWorkingTime       = "arbeitszeit"
	ParamContractType      = "befristung"
	ParamOfferType         = "angebotsart"
	ParamTempAgency        = "zeitarbeit"
	ParamDisability        = "behinderung"
	ParamCorona            = "corona"
)

const (
	// MaxSize is the largest page size the service accepts.
	MaxSize = 100

	// MaxPublishedWithinDays is the longest publication window the service accepts.
	MaxPublishedWithinDays = 100

	// ListSeparator joins the values of multi-valued filters.
	ListSeparator = ";"
)

// OfferType is the employment category of a listing (angebotsart).
type OfferType int

const (
	// Arbeit is regular employment.
	Arbeit OfferType = iota + 1
	// Selbstaendigkeit is self-employment.
	Selbstaendigkeit
	// Ausbildung is an apprenticeship or dual study program.
	Ausbildung
	// PraktikumTrainee is an internship or trainee position.
	PraktikumTrainee
)

// String returns the wire value, or "" for an unknown variant.
func (o OfferType) String() string {
	switch o {
	case Arbeit:
		return "1"
	case Selbstaendigkeit:
		return "2"
	case Ausbildung:
		return "4"
	case PraktikumTrainee:
		return "34"
	default:
		return ""
	}
}

// Valid reports whether o is one of the declared variants.
func (o OfferType) Valid() bool { return o.String() != "" }

// ContractType is the contract duration of a listing (befristung).
type ContractType int

const (
	// Befristet is a fixed-term contract.
	Befristet ContractType = iota + 1
	// Unbefristet is a permanent contract.
	Unbefristet
)

// String returns the wire value, or "" for an unknown variant.
func (c ContractType) String() string {
	switch c {
	case Befristet:
		return "1"
	case Unbefristet:
		return "2"
	default:
		return ""
	}
}

// Valid reports whether c is one of the declared variants.
func (c ContractType) Valid() bool { return c.String() != "" }

// WorkingTime is a working time model (arbeitszeit).
type WorkingTime int

const (
	Vollzeit WorkingTime = iota + 1
	Teilzeit
	SchichtNachtarbeitWochenende
	HeimTelearbeit
	Minijob
)

// String returns the wire value, or "" for an unknown variant.
func (w WorkingTime) String() string {
	switch w {
	case Vollzeit:
		return "vz"
	case Teilzeit:
		return "tz"
	case SchichtNachtarbeitWochenende:
		return "snw"
	case HeimTelearbeit:
		return "ho"
	case Minijob:
		return "mj"
	default:
		return ""
	}
}

// Valid reports whether w is one of the declared variants.
func (w WorkingTime) Valid() bool { return w.String() != "" }

// ParseWorkingTime maps a wire value back to its variant.
func ParseWorkingTime(s string) (WorkingTime, bool) {
	for w := Vollzeit; w <= Minijob; w++ {
		if w.String() == s {
			return w, true
		}
	}
	return 0, false
}

// ParseContractType maps a wire value back to its variant.
func ParseContractType(s string) (ContractType, bool) {
	for c := Befristet; c <= Unbefristet; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// ParseOfferType maps a wire value back to its variant.
func ParseOfferType(s string) (OfferType, bool) {
	for o := Arbeit; o <= PraktikumTrainee; o++ {
		if o.String() == s {
			return o, true
		}
	}
	return 0, false
}
