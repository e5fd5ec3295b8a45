package dto

// HolonCreateRequest adds a node to the graph.
type HolonCreateRequest struct {
	Name string  `json:"name" form:"name" binding:"required"`
	X    float64 `json:"x" form:"x"`
	Y    float64 `json:"y" form:"y"`
}

// LinkCreateRequest connects two holons. The relation type is inferred
// from the endpoint names; Label overrides the display text only.
type LinkCreateRequest struct {
	FromID string `json:"fromId" form:"fromId" binding:"required"`
	ToID   string `json:"toId" form:"toId" binding:"required"`
	Label  string `json:"label" form:"label"`
}

// TrustEventRequest records one interaction outcome between two holons.
type TrustEventRequest struct {
	FromID  string  `json:"fromId" form:"fromId" binding:"required"`
	ToID    string  `json:"toId" form:"toId" binding:"required"`
	Context string  `json:"context" form:"context" binding:"required"`
	Delta   float64 `json:"delta" form:"delta"`
	Reason  string  `json:"reason" form:"reason"`
}
