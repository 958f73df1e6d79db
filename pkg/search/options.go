package search

import (
	"maps"
	"net/url"
	"strconv"
	"strings"
)

// Options is a finalized, immutable set of search criteria.
// The zero value is valid and holds no criteria.
type Options struct {
	params map[string]string
}

// Encode returns the canonical query string, with parameters sorted by name.
// It reports false when no parameter has been set, which is distinct from a
// set of parameters that happen to be empty strings.
func (o Options) Encode() (string, bool) {
	if len(o.params) == 0 {
		return "", false
	}
	return o.Values().Encode(), true
}

// Values returns a copy of the criteria as url.Values.
func (o Options) Values() url.Values {
	values := make(url.Values, len(o.params))
	for key, value := range o.params {
		values.Set(key, value)
	}
	return values
}

// Get returns the raw wire value of a parameter.
func (o Options) Get(name string) (string, bool) {
	value, ok := o.params[name]
	return value, ok
}

// Len returns the number of parameters set.
func (o Options) Len() int { return len(o.params) }

// Page returns the page parameter, if set.
func (o Options) Page() (int, bool) { return o.intParam(ParamPage) }

// Size returns the page size parameter, if set.
func (o Options) Size() (int, bool) { return o.intParam(ParamSize) }

func (o Options) intParam(name string) (int, bool) {
	raw, ok := o.params[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Builder reopens the options for modification. The builder works on a copy;
// o is never changed by it.
func (o Options) Builder() *Builder {
	return &Builder{params: maps.Clone(o.params)}
}

// Builder stages search criteria. Setting a parameter twice keeps the last value.
// A Builder is not safe for concurrent use.
type Builder struct {
	params map[string]string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) set(name, value string) *Builder {
	if b.params == nil {
		b.params = make(map[string]string)
	}
	b.params[name] = value
	return b
}

// JobTitle sets the free-text job title search (was).
func (b *Builder) JobTitle(title string) *Builder { return b.set(ParamJobTitle, title) }

// Location sets the free-text location search (wo).
func (b *Builder) Location(location string) *Builder { return b.set(ParamLocation, location) }

// OccupationalField sets the occupational field (berufsfeld).
func (b *Builder) OccupationalField(field string) *Builder {
	return b.set(ParamOccupationalField, field)
}

// Employer filters by employer name. The service matches exactly and
// case-sensitively: "Deutsche Bahn AG" matches, "deutsche bahn" does not.
func (b *Builder) Employer(name string) *Builder { return b.set(ParamEmployer, name) }

// Radius sets the search radius around Location in kilometers (umkreis).
func (b *Builder) Radius(km int) *Builder { return b.set(ParamRadius, strconv.Itoa(km)) }

// Page sets the page number.
func (b *Builder) Page(page int) *Builder { return b.set(ParamPage, strconv.Itoa(page)) }

// Size sets the page size, capped at MaxSize.
func (b *Builder) Size(size int) *Builder {
	return b.set(ParamSize, strconv.Itoa(clamp(size, MaxSize)))
}

// PublishedWithinDays limits results to listings published in the last
// days days (veroeffentlichtseit), capped at MaxPublishedWithinDays.
func (b *Builder) PublishedWithinDays(days int) *Builder {
	return b.set(ParamPublishedSince, strconv.Itoa(clamp(days, MaxPublishedWithinDays)))
}

// TempAgency includes or excludes temporary employment agencies (zeitarbeit).
func (b *Builder) TempAgency(include bool) *Builder {
	return b.set(ParamTempAgency, strconv.FormatBool(include))
}

// DisabilitySuitable filters for listings suitable for people with
// disabilities (behinderung).
func (b *Builder) DisabilitySuitable(suitable bool) *Builder {
	return b.set(ParamDisability, strconv.FormatBool(suitable))
}

// Corona filters for listings offered in the context of COVID-19.
func (b *Builder) Corona(related bool) *Builder {
	return b.set(ParamCorona, strconv.FormatBool(related))
}

// OfferType sets the employment category (angebotsart). Unknown variants are ignored.
func (b *Builder) OfferType(t OfferType) *Builder {
	if !t.Valid() {
		return b
	}
	return b.set(ParamOfferType, t.String())
}

// ContractTypes sets the contract types (befristung). Unknown variants are
// dropped; an empty list leaves the parameter untouched.
func (b *Builder) ContractTypes(types ...ContractType) *Builder {
	return setList(b, ParamContractType, types)
}

// WorkingTimes sets the working time models (arbeitszeit). Unknown variants
// are dropped; an empty list leaves the parameter untouched.
func (b *Builder) WorkingTimes(times ...WorkingTime) *Builder {
	return setList(b, ParamWorkingTime, times)
}

type variant interface {
	String() string
	Valid() bool
}

func setList[V variant](b *Builder, name string, values []V) *Builder {
	wire := make([]string, 0, len(values))
	for _, v := range values {
		if v.Valid() {
			wire = append(wire, v.String())
		}
	}
	if len(wire) == 0 {
		return b
	}
	return b.set(name, strings.Join(wire, ListSeparator))
}

// Build finalizes the staged criteria. Later changes to b do not affect the
// returned Options.
func (b *Builder) Build() Options {
	return Options{params: maps.Clone(b.params)}
}

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
