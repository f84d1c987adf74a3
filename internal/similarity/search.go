package similarity

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/model"
)

// EmbeddingSource supplies stored claim vectors. An empty result is
// legitimate (nothing indexed yet); search degrades to no matches.
type EmbeddingSource interface {
	AllEmbeddings(ctx context.Context) (map[string][]float64, error)
}

// ClaimSource resolves claim ids to records.
type ClaimSource interface {
	GetClaim(ctx context.Context, id string) (*model.Claim, error)
}

// ClaimDetail joins a ranked match back to lightweight claim metadata.
type ClaimDetail struct {
	ClaimID        string  `json:"claim_id"`
	Score          float64 `json:"score"`
	Carrier        string  `json:"carrier,omitempty"`
	DamageType     string  `json:"damage_type,omitempty"`
	EstimatedValue float64 `json:"estimated_value,omitempty"`
}

// Searcher ranks stored claims against a query vector.
type Searcher struct {
	embeddings EmbeddingSource
	claims     ClaimSource
}

// NewSearcher creates a Searcher over the given sources.
func NewSearcher(embeddings EmbeddingSource, claims ClaimSource) *Searcher {
	return &Searcher{embeddings: embeddings, claims: claims}
}

// FindSimilarClaims embeds the query claim and returns the top limit
// matches by cosine similarity, best first. The query claim itself is
// excluded. Lookup failures degrade to an empty result.
func (s *Searcher) FindSimilarClaims(ctx context.Context, queryClaimID string, limit int) []model.SimilarClaim {
	claim, err := s.claims.GetClaim(ctx, queryClaimID)
	if err != nil || claim == nil {
		zap.L().Debug("similarity: query claim unavailable",
			zap.String("claim_id", queryClaimID),
			zap.Error(err),
		)
		return nil
	}
	return s.rank(ctx, EmbedClaim(*claim), queryClaimID, limit)
}

// FindSimilarClaimsByText embeds free text and runs the same ranking.
func (s *Searcher) FindSimilarClaimsByText(ctx context.Context, text string, limit int) []model.SimilarClaim {
	return s.rank(ctx, EmbedText(text), "", limit)
}

// FindSimilarClaimsWithDetails joins ranked matches to claim metadata,
// preserving score order. A claim that fails to load keeps its slot with
// the id and score only.
func (s *Searcher) FindSimilarClaimsWithDetails(ctx context.Context, queryClaimID string, limit int) []ClaimDetail {
	matches := s.FindSimilarClaims(ctx, queryClaimID, limit)
	details := make([]ClaimDetail, 0, len(matches))
	for _, m := range matches {
		detail := ClaimDetail{ClaimID: m.ClaimID, Score: m.Score}
		if claim, err := s.claims.GetClaim(ctx, m.ClaimID); err == nil && claim != nil {
			detail.Carrier = claim.Carrier
			detail.DamageType = claim.DamageType
			detail.EstimatedValue = claim.EstimatedValue
		}
		details = append(details, detail)
	}
	return details
}

func (s *Searcher) rank(ctx context.Context, query []float64, excludeID string, limit int) []model.SimilarClaim {
	if limit <= 0 {
		return nil
	}

	stored, err := s.embeddings.AllEmbeddings(ctx)
	if err != nil {
		zap.L().Warn("similarity: embedding lookup failed", zap.Error(err))
		return nil
	}
	if len(stored) == 0 {
		return nil
	}

	matches := make([]model.SimilarClaim, 0, len(stored))
	for claimID, vec := range stored {
		if claimID == excludeID {
			continue
		}
		matches = append(matches, model.SimilarClaim{
			ClaimID: claimID,
			Score:   CosineSimilarity(query, vec),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ClaimID < matches[j].ClaimID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Index computes and stores a claim's embedding.
func Index(ctx context.Context, sink interface {
	PutEmbedding(ctx context.Context, claimID string, vector []float64) error
}, claim model.Claim) error {
	return sink.PutEmbedding(ctx, claim.ID, EmbedClaim(claim))
}
