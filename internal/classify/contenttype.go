package classify

import (
	"regexp"
	"strings"

	"github.com/tributary-ai/search-router/internal/types"
)

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+|\b[a-z0-9-]+\.(com|org|net|io|dev|gov|edu)\b`)

// contentTypeVocab maps each content type to the keywords that signal it.
var contentTypeVocab = map[types.ContentType][]string{
	types.ContentTypeNews: {
		"news", "breaking", "today", "latest", "headline", "headlines",
		"announcement", "announced", "yesterday", "this week", "update",
	},
	types.ContentTypeTechnical: {
		"code", "programming", "api", "error", "install", "debug",
		"framework", "library", "docker", "kubernetes", "golang", "python",
		"javascript", "tutorial", "documentation", "stack trace",
	},
	types.ContentTypeAcademic: {
		"research", "paper", "papers", "study", "studies", "journal",
		"thesis", "peer-reviewed", "citation", "arxiv", "publication",
	},
	types.ContentTypeBusiness: {
		"market", "company", "revenue", "stock", "startup", "acquisition",
		"earnings", "ipo", "valuation", "industry", "competitor",
	},
	types.ContentTypeWebContent: {
		"extract", "scrape", "page content", "full text", "read this",
		"summarize this", "website", "webpage", "article at",
	},
}

// ContentTypeDetector classifies a query into one coarse content type using
// keyword tables. Like the complexity classifier it is pure.
type ContentTypeDetector struct{}

// NewContentTypeDetector creates a detector.
func NewContentTypeDetector() *ContentTypeDetector {
	return &ContentTypeDetector{}
}

// Detect returns the best-matching content type, or general when nothing
// matches. Queries containing a URL are always web_content: the caller wants
// that page, not a topical search.
func (d *ContentTypeDetector) Detect(query string) types.ContentType {
	lowered := strings.ToLower(query)

	if urlPattern.MatchString(lowered) {
		return types.ContentTypeWebContent
	}

	best := types.ContentTypeGeneral
	bestCount := 0
	for _, ct := range types.AllContentTypes {
		vocab, ok := contentTypeVocab[ct]
		if !ok {
			continue
		}
		count := 0
		for _, kw := range vocab {
			if strings.Contains(lowered, kw) {
				count++
			}
		}
		if count > bestCount {
			best = ct
			bestCount = count
		}
	}

	return best
}

// ContainsURL reports whether the query embeds a URL or bare domain.
func ContainsURL(query string) bool {
	return urlPattern.MatchString(strings.ToLower(query))
}
