package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Sternrassler/jobsuche-client/pkg/search"
)

// criteria are search filters as given on the command line or in an HTTP
// query. Unset fields are left out of the request.
type criteria struct {
	JobTitle          string
	Location          string
	OccupationalField string
	Employer          string
	Radius            int
	Size              int
	PublishedWithin   int
	WorkingTimes      []string
	ContractTypes     []string
	OfferType         string
	TempAgency        *bool
	Disability        *bool
	Corona            *bool
}

// options validates the enum values and builds the search options.
func (c criteria) options() (search.Options, error) {
	b := search.NewBuilder()

	if c.JobTitle != "" {
		b.JobTitle(c.JobTitle)
	}
	if c.Location != "" {
		b.Location(c.Location)
	}
	if c.OccupationalField != "" {
		b.OccupationalField(c.OccupationalField)
	}
	if c.Employer != "" {
		b.Employer(c.Employer)
	}
	if c.Radius > 0 {
		b.Radius(c.Radius)
	}
	if c.Size > 0 {
		b.Size(c.Size)
	}
	if c.PublishedWithin > 0 {
		b.PublishedWithinDays(c.PublishedWithin)
	}

	if len(c.WorkingTimes) > 0 {
		times := make([]search.WorkingTime, 0, len(c.WorkingTimes))
		for _, s := range c.WorkingTimes {
			w, ok := search.ParseWorkingTime(s)
			if !ok {
				return search.Options{}, fmt.Errorf("unknown working time %q (want vz, tz, snw, ho, mj)", s)
			}
			times = append(times, w)
		}
		b.WorkingTimes(times...)
	}

	if len(c.ContractTypes) > 0 {
		types := make([]search.ContractType, 0, len(c.ContractTypes))
		for _, s := range c.ContractTypes {
			ct, ok := search.ParseContractType(s)
			if !ok {
				return search.Options{}, fmt.Errorf("unknown contract type %q (want 1 or 2)", s)
			}
			types = append(types, ct)
		}
		b.ContractTypes(types...)
	}

	if c.OfferType != "" {
		ot, ok := search.ParseOfferType(c.OfferType)
		if !ok {
			return search.Options{}, fmt.Errorf("unknown offer type %q (want 1, 2, 4 or 34)", c.OfferType)
		}
		b.OfferType(ot)
	}

	if c.TempAgency != nil {
		b.TempAgency(*c.TempAgency)
	}
	if c.Disability != nil {
		b.DisabilitySuitable(*c.Disability)
	}
	if c.Corona != nil {
		b.Corona(*c.Corona)
	}

	return b.Build(), nil
}

// criteriaFlags registers the search flags on fs and returns a function
// that reads them back once parsed.
func criteriaFlags(fs *pflag.FlagSet) func() criteria {
	var c criteria
	var tempAgency, disability, corona bool

	fs.StringVar(&c.JobTitle, "was", "", "job title or keyword")
	fs.StringVar(&c.Location, "wo", "", "location (city or postal code)")
	fs.StringVar(&c.OccupationalField, "berufsfeld", "", "occupational field")
	fs.StringVar(&c.Employer, "arbeitgeber", "", "employer name (exact, case-sensitive)")
	fs.IntVar(&c.Radius, "umkreis", 0, "radius around --wo in km")
	fs.IntVar(&c.Size, "size", 0, "results per page (max 100)")
	fs.IntVar(&c.PublishedWithin, "veroeffentlichtseit", 0, "published within the last N days (max 100)")
	fs.StringSliceVar(&c.WorkingTimes, "arbeitszeit", nil, "working time: vz, tz, snw, ho, mj")
	fs.StringSliceVar(&c.ContractTypes, "befristung", nil, "contract type: 1 (fixed-term), 2 (permanent)")
	fs.StringVar(&c.OfferType, "angebotsart", "", "offer type: 1 (job), 2 (self-employment), 4 (apprenticeship), 34 (internship)")
	fs.BoolVar(&tempAgency, "zeitarbeit", true, "include temp agency listings")
	fs.BoolVar(&disability, "behinderung", false, "only listings suitable for people with disabilities")
	fs.BoolVar(&corona, "corona", false, "only pandemic-related listings")

	return func() criteria {
		out := c
		if fs.Changed("zeitarbeit") {
			out.TempAgency = &tempAgency
		}
		if fs.Changed("behinderung") {
			out.Disability = &disability
		}
		if fs.Changed("corona") {
			out.Corona = &corona
		}
		return out
	}
}

// criteriaFromQuery reads the wire parameter names from an HTTP query.
// List values may be separated by ";" or ",".
func criteriaFromQuery(q url.Values) (criteria, error) {
	c := criteria{
		JobTitle:          q.Get(search.ParamJobTitle),
		Location:          q.Get(search.ParamLocation),
		OccupationalField: q.Get(search.ParamOccupationalField),
		Employer:          q.Get(search.ParamEmployer),
		OfferType:         q.Get(search.ParamOfferType),
		WorkingTimes:      splitList(q.Get(search.ParamWorkingTime)),
		ContractTypes:     splitList(q.Get(search.ParamContractType)),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{search.ParamRadius, &c.Radius},
		{search.ParamSize, &c.Size},
		{search.ParamPublishedSince, &c.PublishedWithin},
	}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return criteria{}, fmt.Errorf("invalid %s %q: %w", p.name, raw, err)
		}
		*p.dst = n
	}

	bools := []struct {
		name string
		dst  **bool
	}{
		{search.ParamTempAgency, &c.TempAgency},
		{search.ParamDisability, &c.Disability},
		{search.ParamCorona, &c.Corona},
	}
	for _, p := range bools {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return criteria{}, fmt.Errorf("invalid %s %q: %w", p.name, raw, err)
		}
		*p.dst = &v
	}

	return c, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
