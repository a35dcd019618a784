package scoring

import (
	"github.com/tributary-ai/search-router/internal/types"
)

// Built-in provider names. The tables below cover these; unknown providers
// fall back to neutral values so a new backend can be registered without a
// table entry.
const (
	ProviderNewsAPI   = "newsapi"
	ProviderTavily    = "tavily"
	ProviderExa       = "exa"
	ProviderSerper    = "serper"
	ProviderFirecrawl = "firecrawl"
	ProviderBrave     = "brave"
)

// affinityTable is the fixed provider×content-type base score, 0.0–1.0.
// Read-only after startup.
var affinityTable = map[string]map[types.ContentType]float64{
	ProviderNewsAPI: {
		types.ContentTypeNews:       0.95,
		types.ContentTypeBusiness:   0.60,
		types.ContentTypeGeneral:    0.40,
		types.ContentTypeTechnical:  0.20,
		types.ContentTypeAcademic:   0.15,
		types.ContentTypeWebContent: 0.15,
	},
	ProviderTavily: {
		types.ContentTypeNews:       0.80,
		types.ContentTypeGeneral:    0.75,
		types.ContentTypeBusiness:   0.60,
		types.ContentTypeTechnical:  0.50,
		types.ContentTypeAcademic:   0.45,
		types.ContentTypeWebContent: 0.40,
	},
	ProviderExa: {
		types.ContentTypeAcademic:   0.90,
		types.ContentTypeTechnical:  0.80,
		types.ContentTypeGeneral:    0.60,
		types.ContentTypeBusiness:   0.50,
		types.ContentTypeNews:       0.30,
		types.ContentTypeWebContent: 0.30,
	},
	ProviderSerper: {
		types.ContentTypeGeneral:    0.80,
		types.ContentTypeWebContent: 0.60,
		types.ContentTypeBusiness:   0.60,
		types.ContentTypeTechnical:  0.60,
		types.ContentTypeNews:       0.50,
		types.ContentTypeAcademic:   0.40,
	},
	ProviderFirecrawl: {
		types.ContentTypeWebContent: 0.95,
		types.ContentTypeTechnical:  0.50,
		types.ContentTypeGeneral:    0.35,
		types.ContentTypeNews:       0.20,
		types.ContentTypeAcademic:   0.20,
		types.ContentTypeBusiness:   0.20,
	},
	ProviderBrave: {
		types.ContentTypeGeneral:    0.70,
		types.ContentTypeNews:       0.60,
		types.ContentTypeTechnical:  0.55,
		types.ContentTypeBusiness:   0.50,
		types.ContentTypeAcademic:   0.40,
		types.ContentTypeWebContent: 0.40,
	},
}

// specializationTable awards a bonus where a provider is purpose-built for a
// content type.
var specializationTable = map[string]map[types.ContentType]float64{
	ProviderNewsAPI:   {types.ContentTypeNews: 1.0},
	ProviderExa:       {types.ContentTypeAcademic: 1.0, types.ContentTypeTechnical: 0.6},
	ProviderFirecrawl: {types.ContentTypeWebContent: 1.0},
	ProviderTavily:    {types.ContentTypeNews: 0.5},
	ProviderSerper:    {types.ContentTypeGeneral: 0.5},
}

// neutralAffinity is used for providers with no table entry.
const neutralAffinity = 0.5

// Affinity returns the base score for a provider/content-type pair.
func Affinity(provider string, ct types.ContentType) float64 {
	if row, ok := affinityTable[provider]; ok {
		if v, ok := row[ct]; ok {
			return v
		}
	}
	return neutralAffinity
}

// Specialization returns the specialization bonus for a provider/content-type pair.
func Specialization(provider string, ct types.ContentType) float64 {
	if row, ok := specializationTable[provider]; ok {
		return row[ct]
	}
	return 0
}
