// Package analyzer holds the black-box site analyzers the orchestrator
// fans out next to the protocol probes: structured commerce data, agent
// accessibility, and advisory WHOIS domain info. Analyzers degrade to
// zero-value results on failure; they never fail a scan.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/webclient"
)

// StructuredDataFunc is the orchestrator-facing analyzer contract.
type StructuredDataFunc func(ctx context.Context, domain string) model.StructuredDataResult

// platformFingerprints maps an HTML substring to the platform it betrays.
// Checked against the raw homepage body, lowercased.
var platformFingerprints = []struct {
	needle   string
	platform string
}{
	{"cdn.shopify.com", "shopify"},
	{"shopify", "shopify"},
	{"woocommerce", "woocommerce"},
	{"bigcommerce", "bigcommerce"},
	{"magento", "magento"},
	{"squarespace", "squarespace"},
	{"wix.com", "wix"},
}

// StructuredDataAnalyzer extracts JSON-LD commerce markup and platform
// fingerprints from a single homepage fetch.
type StructuredDataAnalyzer struct {
	wc     webclient.WebClient
	logger logging.Logger
}

func NewStructuredDataAnalyzer(wc webclient.WebClient, logger logging.Logger) *StructuredDataAnalyzer {
	return &StructuredDataAnalyzer{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "analyzer.structured"}),
	}
}

// Analyze fetches the homepage once and mines it. A fetch or parse failure
// yields the zero result.
func (a *StructuredDataAnalyzer) Analyze(ctx context.Context, domain string) model.StructuredDataResult {
	var result model.StructuredDataResult

	resp, err := a.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: "https://" + domain + "/"})
	if err != nil || resp.StatusCode != http.StatusOK {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return result
	}

	result.Platform = detectPlatform(doc, resp.Body)

	types := make(map[string]struct{})
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		mineJSONLD([]byte(sel.Text()), &result, types)
	})
	for t := range types {
		result.JSONLDTypes = append(result.JSONLDTypes, t)
	}
	sort.Strings(result.JSONLDTypes)

	result.HasOpenGraph = doc.Find(`meta[property="og:title"], meta[property="og:type"]`).Length() > 0

	return result
}

func detectPlatform(doc *goquery.Document, body []byte) string {
	if generator, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok {
		lower := strings.ToLower(generator)
		for _, fp := range platformFingerprints {
			if strings.Contains(lower, fp.needle) {
				return fp.platform
			}
		}
	}
	lower := strings.ToLower(string(body))
	for _, fp := range platformFingerprints {
		if strings.Contains(lower, fp.needle) {
			return fp.platform
		}
	}
	return ""
}

// mineJSONLD walks one JSON-LD block (object, array or @graph) and folds
// commerce signals into the result. Malformed blocks are skipped.
func mineJSONLD(raw []byte, result *model.StructuredDataResult, types map[string]struct{}) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return
	}
	walkEntities(parsed, result, types)
}

func walkEntities(node any, result *model.StructuredDataResult, types map[string]struct{}) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			walkEntities(item, result, types)
		}
	case map[string]any:
		for _, t := range entityTypes(v) {
			types[t] = struct{}{}
			switch t {
			case "Product":
				result.HasProductMarkup = true
				result.ProductCount++
			case "Offer", "AggregateOffer":
				result.HasOfferMarkup = true
			case "Organization", "OnlineStore", "LocalBusiness":
				result.HasOrganizationMarkup = true
			}
		}
		if _, ok := v["price"]; ok {
			result.HasPriceMarkup = true
		}
		if _, ok := v["availability"]; ok {
			result.HasAvailabilityMarkup = true
		}
		if graph, ok := v["@graph"]; ok {
			walkEntities(graph, result, types)
		}
		if offers, ok := v["offers"]; ok {
			result.HasOfferMarkup = true
			walkEntities(offers, result, types)
		}
	}
}

// entityTypes reads @type, which may be a string or a list of strings.
func entityTypes(entity map[string]any) []string {
	switch t := entity["@type"].(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
