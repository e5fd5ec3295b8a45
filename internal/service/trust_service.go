package service

import (
	"context"
	"math"
	"sync"

	"github.com/haierkeys/holarchy-browser-service/internal/dto"
	"github.com/haierkeys/holarchy-browser-service/internal/model"
	"github.com/haierkeys/holarchy-browser-service/pkg/errors"
	"github.com/haierkeys/holarchy-browser-service/pkg/logger"
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	reputationDecay  = 0.05
	deltaWeight      = 0.25
	confidenceStep   = 0.02
	blendOwnWeight   = 0.7
	blendPeersWeight = 0.3

	deltaLinkOnCreate = 0.05
	deltaManualLink   = 0.03
	deltaAutoRelate   = 0.01
)

// HolonView is a holon with its derived reputation attached.
type HolonView struct {
	model.Holon
	EffectiveReputation float64 `json:"effectiveReputation"`
}

// ReputationView answers the reputation query for one holon.
type ReputationView struct {
	Reputation          float64            `json:"reputation"`
	EffectiveReputation float64            `json:"effectiveReputation"`
	Confidence          float64            `json:"confidence"`
	Events              []model.TrustEvent `json:"events"`
}

// AutoRelateResult reports how many links an auto-relate pass created.
type AutoRelateResult struct {
	Created int `json:"created"`
}

// TrustService owns the holon graph and its trust ledger: holons, typed
// links, and the append-only trust event log. Only ApplyEvent mutates a
// trust signature.
type TrustService interface {
	ListHolons(ctx context.Context) []*HolonView
	GetHolon(ctx context.Context, id string) (*HolonView, error)
	CreateHolon(ctx context.Context, params *dto.HolonCreateRequest, sourceID string) (*HolonView, error)
	CreateLink(ctx context.Context, params *dto.LinkCreateRequest) (*model.Link, error)
	AutoRelate(ctx context.Context) *AutoRelateResult
	ApplyEvent(ctx context.Context, params *dto.TrustEventRequest) (*model.TrustEvent, error)
	Reputation(ctx context.Context, id string) (*ReputationView, error)
}

type trustService struct {
	mu     sync.RWMutex
	holons []*model.Holon
	links  []*model.Link
	events []model.TrustEvent
	log    *zap.Logger
}

func NewTrustService(log *zap.Logger) TrustService {
	return &trustService{log: log}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func (svc *trustService) byID(id string) *model.Holon {
	for _, h := range svc.holons {
		if h.ID == id {
			return h
		}
	}
	return nil
}

func (svc *trustService) hasLink(fromID, toID string) bool {
	for _, l := range svc.links {
		if l.FromID == fromID && l.ToID == toID {
			return true
		}
	}
	return false
}

// effectiveReputation blends the stored reputation with the mean of all
// incoming deltas. It never touches the signature. Caller holds the lock.
func (svc *trustService) effectiveReputation(h *model.Holon) float64 {
	var sum float64
	var n int
	for _, ev := range svc.events {
		if ev.ToID == h.ID {
			sum += ev.Delta
			n++
		}
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	return clamp(h.Trust.Reputation*blendOwnWeight+mean*blendPeersWeight, -1, 1)
}

// applyEvent appends ev to the log and folds it into the target's
// signature. Unknown targets still append: the log is the record of what
// happened, not of what resolved. Caller holds the lock.
func (svc *trustService) applyEvent(ev model.TrustEvent) {
	svc.events = append(svc.events, ev)
	target := svc.byID(ev.ToID)
	if target == nil {
		return
	}
	t := &target.Trust
	t.Reputation = clamp(t.Reputation*(1-reputationDecay)+ev.Delta*deltaWeight, -1, 1)
	t.Confidence = clamp(t.Confidence+sign(ev.Delta)*confidenceStep, 0, 1)
	if t.Sources == nil {
		t.Sources = make(map[string]float64)
	}
	t.Sources[ev.FromID] += ev.Delta
	t.LastUpdate = timex.Now()
}

func (svc *trustService) view(h *model.Holon) *HolonView {
	snapshot := *h
	snapshot.Trust = h.Trust.Clone()
	return &HolonView{Holon: snapshot, EffectiveReputation: svc.effectiveReputation(h)}
}

func (svc *trustService) ListHolons(ctx context.Context) []*HolonView {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make([]*HolonView, 0, len(svc.holons))
	for _, h := range svc.holons {
		out = append(out, svc.view(h))
	}
	return out
}

func (svc *trustService) GetHolon(ctx context.Context, id string) (*HolonView, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	h := svc.byID(id)
	if h == nil {
		return nil, errors.NotFound("Not found")
	}
	return svc.view(h), nil
}

func (svc *trustService) CreateHolon(ctx context.Context, params *dto.HolonCreateRequest, sourceID string) (*HolonView, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	// Resolve the source first so a bad sourceId rejects the whole
	// request instead of leaving a holon without its link.
	var source *model.Holon
	if sourceID != "" {
		if source = svc.byID(sourceID); source == nil {
			return nil, errors.NotFound("Not found")
		}
	}

	h := &model.Holon{
		ID:        uuid.NewString(),
		Name:      params.Name,
		X:         params.X,
		Y:         params.Y,
		CreatedAt: timex.Now(),
		Trust: model.TrustSignature{
			Reputation: 0,
			Confidence: 0.5,
			LastUpdate: timex.Now(),
			Sources:    map[string]float64{},
		},
	}
	svc.holons = append(svc.holons, h)

	if source != nil {
		svc.links = append(svc.links, &model.Link{
			ID:     uuid.NewString(),
			FromID: source.ID,
			ToID:   h.ID,
			Type:   Classify(source.Name, h.Name),
		})
		svc.applyEvent(model.TrustEvent{
			FromID:    source.ID,
			ToID:      h.ID,
			Context:   model.ContextCollaboration,
			Delta:     deltaLinkOnCreate,
			Reason:    "created link",
			Timestamp: timex.Now(),
		})
	}

	svc.log.Info("holon created",
		zap.String(logger.FieldHolonID, h.ID),
		zap.String("name", h.Name))
	return svc.view(h), nil
}

func (svc *trustService) CreateLink(ctx context.Context, params *dto.LinkCreateRequest) (*model.Link, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	from := svc.byID(params.FromID)
	to := svc.byID(params.ToID)
	if from == nil || to == nil {
		return nil, errors.NotFound("Not found")
	}
	if params.FromID == params.ToID {
		return nil, errors.MalformedInput("cannot link a holon to itself", nil)
	}

	link := &model.Link{
		ID:     uuid.NewString(),
		FromID: from.ID,
		ToID:   to.ID,
		Type:   Classify(from.Name, to.Name),
		Label:  params.Label,
	}
	svc.links = append(svc.links, link)
	svc.applyEvent(model.TrustEvent{
		FromID:    from.ID,
		ToID:      to.ID,
		Context:   model.ContextCollaboration,
		Delta:     deltaManualLink,
		Reason:    "manual link",
		Timestamp: timex.Now(),
	})
	return link, nil
}

// AutoRelate links every ordered pair of holons that has no link yet,
// recording a small system trust event per new link.
func (svc *trustService) AutoRelate(ctx context.Context) *AutoRelateResult {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	created := 0
	for _, a := range svc.holons {
		for _, b := range svc.holons {
			if a.ID == b.ID || svc.hasLink(a.ID, b.ID) {
				continue
			}
			svc.links = append(svc.links, &model.Link{
				ID:     uuid.NewString(),
				FromID: a.ID,
				ToID:   b.ID,
				Type:   Classify(a.Name, b.Name),
			})
			svc.applyEvent(model.TrustEvent{
				FromID:    a.ID,
				ToID:      b.ID,
				Context:   model.ContextSystem,
				Delta:     deltaAutoRelate,
				Reason:    "auto relate",
				Timestamp: timex.Now(),
			})
			created++
		}
	}
	if created > 0 {
		svc.log.Info("auto relate pass", zap.Int("links", created))
	}
	return &AutoRelateResult{Created: created}
}

func (svc *trustService) ApplyEvent(ctx context.Context, params *dto.TrustEventRequest) (*model.TrustEvent, error) {
	if !model.ValidContext(model.TrustContext(params.Context)) {
		return nil, errors.MalformedInput("unknown trust context", nil)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	ev := model.TrustEvent{
		FromID:    params.FromID,
		ToID:      params.ToID,
		Context:   model.TrustContext(params.Context),
		Delta:     params.Delta,
		Reason:    params.Reason,
		Timestamp: timex.Now(),
	}
	svc.applyEvent(ev)
	return &ev, nil
}

func (svc *trustService) Reputation(ctx context.Context, id string) (*ReputationView, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	h := svc.byID(id)
	if h == nil {
		return nil, errors.NotFound("Not found")
	}
	events := make([]model.TrustEvent, 0)
	for _, ev := range svc.events {
		if ev.ToID == id {
			events = append(events, ev)
		}
	}
	return &ReputationView{
		Reputation:          h.Trust.Reputation,
		EffectiveReputation: svc.effectiveReputation(h),
		Confidence:          h.Trust.Confidence,
		Events:              events,
	}, nil
}
