package client

import "encoding/json"

// JobSearchResponse is one page of the job search endpoint.
type JobSearchResponse struct {
	Listings []JobListing `json:"stellenangebote"`

	// Total is the number of matches the service reports for the query.
	Total *int64 `json:"maxErgebnisse,omitempty"`
	Page  *int64 `json:"page,omitempty"`
	Size  *int64 `json:"size,omitempty"`

	// Facets is passed through undecoded; its shape varies per query.
	Facets json.RawMessage `json:"facetten,omitempty"`
}

// JobListing is a summary record in search results.
type JobListing struct {
	HashID *string `json:"hashId,omitempty"`

	// Refnr identifies the listing for JobDetails.
	Refnr      string  `json:"refnr"`
	Occupation string  `json:"beruf"`
	Title      *string `json:"titel,omitempty"`
	Employer   string  `json:"arbeitgeber"`

	PublishedDate  *string      `json:"aktuelleVeroeffentlichungsdatum,omitempty"`
	StartDate      *string      `json:"eintrittsdatum,omitempty"`
	Location       WorkLocation `json:"arbeitsort"`
	ModifiedAt     *string      `json:"modifikationsTimestamp,omitempty"`
	ExternalURL    *string      `json:"externeUrl,omitempty"`
	EmployerLogoID *string      `json:"kundennummerHash,omitempty"`
}

// WorkLocation is where a job is performed.
type WorkLocation struct {
	PostalCode  *string      `json:"plz,omitempty"`
	City        *string      `json:"ort,omitempty"`
	Street      *string      `json:"strasse,omitempty"`
	Region      *string      `json:"region,omitempty"`
	Country     *string      `json:"land,omitempty"`
	Coordinates *Coordinates `json:"koordinaten,omitempty"`

	// Distance from the searched location in km, as sent by the service.
	Distance *string `json:"entfernung,omitempty"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// JobDetails is the full record for one listing. Every field is optional;
// the service omits whatever the employer did not fill in.
type JobDetails struct {
	HashID           *string `json:"hashId,omitempty"`
	Refnr            *string `json:"refnr,omitempty"`
	Title            *string `json:"titel,omitempty"`
	OfferType        *string `json:"stellenangebotsArt,omitempty"`
	Employer         *string `json:"arbeitgeber,omitempty"`
	EmployerHashID   *string `json:"arbeitgeberHashId,omitempty"`
	MainOccupation   *string `json:"hauptberuf,omitempty"`
	Occupation       *string `json:"beruf,omitempty"`
	IndustryGroup    *string `json:"branchengruppe,omitempty"`
	Industry         *string `json:"branche,omitempty"`
	PublishedDate    *string `json:"aktuelleVeroeffentlichungsdatum,omitempty"`
	StartDate        *string `json:"eintrittsdatum,omitempty"`
	FirstPublishedAt *string `json:"ersteVeroeffentlichungsdatum,omitempty"`
	ModifiedAt       *string `json:"modifikationsTimestamp,omitempty"`
	Description      *string `json:"stellenbeschreibung,omitempty"`

	Locations       []WorkLocation `json:"arbeitsorte,omitempty"`
	EmployerAddress *Address       `json:"arbeitgeberAdresse,omitempty"`
	WorkingTimes    []string       `json:"arbeitszeitmodelle,omitempty"`

	ContractType      *string `json:"befristung,omitempty"`
	ContractDuration  *string `json:"vertragsdauer,omitempty"`
	TakeoverPossible  *bool   `json:"uebernahme,omitempty"`
	CompanySize       *string `json:"betriebsgroesse,omitempty"`
	OpenPositions     *uint32 `json:"anzahlOffeneStellen,omitempty"`
	DisabledOnly      *bool   `json:"nurFuerSchwerbehinderte,omitempty"`
	SuitedForRefugees *bool   `json:"fuerFluechtlingeGeeignet,omitempty"`

	EmployerPresentation    *string `json:"arbeitgeberdarstellung,omitempty"`
	EmployerPresentationURL *string `json:"arbeitgeberdarstellungUrl,omitempty"`
	AlliancePartner         *string `json:"allianzpartner,omitempty"`
	AlliancePartnerURL      *string `json:"allianzpartnerUrl,omitempty"`
	Compensation            *string `json:"verguetung,omitempty"`

	Skills     []Skill           `json:"fertigkeiten,omitempty"`
	Mobility   *Mobility         `json:"mobilitaet,omitempty"`
	Leadership *LeadershipSkills `json:"fuehrungskompetenzen,omitempty"`

	Supervised         *bool `json:"istBetreut,omitempty"`
	GoogleJobsRelevant *bool `json:"istGoogleJobsRelevant,omitempty"`
	Anonymous          *bool `json:"anzeigeAnonym,omitempty"`
}

// Address is an employer's postal address.
type Address struct {
	Country           string  `json:"land"`
	Region            string  `json:"region"`
	PostalCode        *string `json:"plz,omitempty"`
	City              string  `json:"ort"`
	Street            *string `json:"strasse,omitempty"`
	StreetHouseNumber *string `json:"strasseHausnummer,omitempty"`
}

// Skill is a required competency, grouped by level.
type Skill struct {
	HierarchyName string              `json:"hierarchieName"`
	Levels        map[string][]string `json:"auspraegungen,omitempty"`
}

// Mobility holds travel requirements.
type Mobility struct {
	TravelWillingness *string `json:"reisebereitschaft,omitempty"`
}

// LeadershipSkills holds management requirements.
type LeadershipSkills struct {
	HasAuthority         *bool `json:"hatVollmacht,omitempty"`
	HasBudgetResponsible *bool `json:"hatBudgetverantwortung,omitempty"`
}
