package models

// RoutingLabel classifies a query relative to the service domain.
type RoutingLabel string

const (
	// RouteAccept means the query is clearly in-domain.
	RouteAccept RoutingLabel = "ACCEPT"
	// RouteReject means the query is out of domain and must not reach the generator.
	RouteReject RoutingLabel = "REJECT"
	// RouteAmbiguous means neither threshold fired decisively. Ambiguous
	// queries currently flow through normal processing like accepted ones;
	// the label is surfaced in results so callers can treat it differently.
	RouteAmbiguous RoutingLabel = "AMBIGUOUS"
)

// RoutingDecision is the outcome of classifying one query embedding against
// the anchor sets. Produced fresh per call, never stored.
type RoutingDecision struct {
	Label       RoutingLabel `json:"decision"`
	Confidence  float64      `json:"confidence"`
	MaxPositive float64      `json:"max_positive_score"`
	MaxNegative float64      `json:"max_negative_score"`
	Reason      string       `json:"reason"`
}
