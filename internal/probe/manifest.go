package probe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/paylens/paylens/internal/model"
)

// maxManifestSamples caps how many declared resources are kept as evidence.
const maxManifestSamples = 5

// manifestSignature describes what makes a well-known JSON document count
// as a manifest for one protocol. A document is accepted when it parses as
// a JSON object AND carries at least one of: a recognized resource-list
// key, a nested category bucket object, a version field, or a top-level
// accepts array.
type manifestSignature struct {
	// listKeys are the historical aliases for the top-level resource array.
	listKeys []string

	// categoryKey names the nested "categories of resources" object whose
	// values are resource arrays.
	categoryKey string

	// versionKeys are the accepted top-level version field names.
	versionKeys []string

	// acceptsKey names the top-level accepts array, when the protocol has
	// one.
	acceptsKey string
}

var x402ManifestSignature = manifestSignature{
	listKeys:    []string{"resources", "endpoints", "paid_resources", "items"},
	categoryKey: "categories",
	versionKeys: []string{"x402Version", "version"},
	acceptsKey:  "accepts",
}

var acpManifestSignature = manifestSignature{
	listKeys:    []string{"products", "resources"},
	categoryKey: "collections",
	versionKeys: []string{"acpVersion", "version"},
	acceptsKey:  "payment_methods",
}

var ap2ManifestSignature = manifestSignature{
	listKeys:    []string{"mandates", "resources"},
	categoryKey: "",
	versionKeys: []string{"ap2Version", "version"},
	acceptsKey:  "",
}

// parseManifest validates body against sig and extracts the typed
// evidence. ok is false when the document does not qualify as a manifest.
func parseManifest(body []byte, sig manifestSignature) (*model.ManifestEvidence, bool) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}

	var (
		resources  []any
		categories map[string]any
		hasSignal  bool
	)

	for _, key := range sig.listKeys {
		if list, ok := doc[key].([]any); ok {
			resources = list
			hasSignal = true
			break
		}
	}
	if sig.categoryKey != "" {
		if buckets, ok := doc[sig.categoryKey].(map[string]any); ok {
			categories = buckets
			hasSignal = true
		}
	}

	version := 0
	for _, key := range sig.versionKeys {
		if v, ok := jsonInt(doc[key]); ok {
			version = v
			hasSignal = true
			break
		}
	}

	var accepts []model.AcceptEntry
	if sig.acceptsKey != "" {
		if raw, ok := doc[sig.acceptsKey].([]any); ok {
			accepts = parseAccepts(raw)
			hasSignal = true
		}
	}

	if !hasSignal {
		return nil, false
	}

	// Flatten categorized buckets behind the flat list, deterministically.
	if categories != nil {
		names := make([]string, 0, len(categories))
		for name := range categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if bucket, ok := categories[name].([]any); ok {
				resources = append(resources, bucket...)
			}
		}
	}

	ev := &model.ManifestEvidence{
		Version:       version,
		ServiceName:   jsonString(doc, "name", "service", "service_name"),
		BaseURL:       jsonString(doc, "baseUrl", "base_url", "url"),
		ResourceCount: len(resources),
		Accepts:       accepts,
	}

	for _, raw := range resources {
		if len(ev.Samples) == maxManifestSamples {
			break
		}
		if entry, ok := raw.(map[string]any); ok {
			ev.Samples = append(ev.Samples, resourceSample(entry))
		}
	}

	if networks, ok := doc["networks"].(map[string]any); ok {
		names := make([]string, 0, len(networks))
		for name := range networks {
			names = append(names, name)
		}
		sort.Strings(names)
		ev.Networks = names
	}

	return ev, true
}

// parseAccepts converts a raw accepts array into typed entries, skipping
// anything that is not an object.
func parseAccepts(raw []any) []model.AcceptEntry {
	var out []model.AcceptEntry
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		accept := model.AcceptEntry{
			Network:           asString(entry["network"]),
			MaxAmountRequired: amountString(entry["maxAmountRequired"]),
			Asset:             asString(entry["asset"]),
			PayTo:             asString(entry["payTo"]),
		}
		if extra, ok := entry["extra"].(map[string]any); ok {
			accept.Extra = extra
		}
		out = append(out, accept)
	}
	return out
}

func resourceSample(entry map[string]any) model.ResourceSample {
	sample := model.ResourceSample{
		URL:         jsonString(entry, "path", "url", "resource"),
		Method:      strings.ToUpper(asString(entry["method"])),
		Price:       amountString(entry["price"]),
		Currency:    jsonString(entry, "currency", "asset"),
		Network:     asString(entry["network"]),
		Description: jsonString(entry, "description", "name"),
	}
	return sample
}

// jsonInt accepts the number encodings JSON decoding can produce.
func jsonInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// jsonString returns the first non-empty string among the given keys.
func jsonString(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(doc[key]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// amountString renders a declared price/amount as a display string whether
// the manifest encoded it as a number or a string.
func amountString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", n), "0"), ".")
	}
	return ""
}
