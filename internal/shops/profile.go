package shops

import "strings"

// NormalizeProfile converts snake_case field names from webhook payloads to
// the camelCase attribute names the table uses, dropping nil values. Keys
// already in camelCase pass through unchanged. The payload's bare id is the
// platform-assigned shop id and maps to the shopId attribute.
func NormalizeProfile(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		if k == "id" {
			out["shopId"] = v
			continue
		}
		out[snakeToCamel(k)] = v
	}
	return out
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if i == 0 || len(p) < 2 {
			parts[i] = strings.ToLower(p)
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "")
}
