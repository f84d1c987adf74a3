// Package similarity ranks historical claims by vector closeness. The
// embedding is a deterministic feature hash, not a learned model: good
// enough to surface structurally similar claims, cheap enough to run
// inline, and replaceable behind the same interface when a real embedding
// store is wired.
package similarity

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/sells-group/claim-intel/internal/model"
)

// Dim is the embedding dimensionality.
const Dim = 128

const epsilon = 1e-10

// EmbedClaim builds the feature-hash vector for a claim.
func EmbedClaim(claim model.Claim) []float64 {
	var tokens []string
	add := func(prefix, value string) {
		if value != "" {
			tokens = append(tokens, prefix+":"+strings.ToLower(value))
		}
	}

	add("carrier", claim.Carrier)
	add("roof", claim.RoofMaterial)
	add("damage", claim.DamageType)
	add("severity", claim.DamageSeverity)
	add("cause", claim.DamageCause)
	for _, flag := range claim.Flags {
		add("flag", flag)
	}
	add("value", valueBucket(claim.EstimatedValue))
	add("age", ageBucket(claim.RoofAgeYears))
	if claim.DenialReason != "" {
		tokens = append(tokens, "denied")
	}

	return embedTokens(tokens)
}

// EmbedText builds the feature-hash vector for free text.
func EmbedText(text string) []float64 {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	return embedTokens(fields)
}

func embedTokens(tokens []string) []float64 {
	vec := make([]float64, Dim)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%Dim]++
	}
	return normalize(vec)
}

func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// CosineSimilarity computes dot(a,b) / (|a|*|b| + epsilon). Mismatched or
// empty vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + epsilon)
}

func valueBucket(value float64) string {
	switch {
	case value <= 0:
		return ""
	case value < 10000:
		return "small"
	case value < 25000:
		return "medium"
	case value < 50000:
		return "large"
	default:
		return "jumbo"
	}
}

func ageBucket(years int) string {
	switch {
	case years <= 0:
		return ""
	case years < 5:
		return "new"
	case years < 15:
		return "mid"
	default:
		return "old"
	}
}
