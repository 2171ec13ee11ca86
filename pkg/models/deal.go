package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
)

// DealStatus is a stage in the deal pipeline.
type DealStatus string

const (
	StatusInitiated  DealStatus = "initiated"
	StatusKYC        DealStatus = "kyc"
	StatusContracted DealStatus = "contracted"
	StatusInspection DealStatus = "inspection"
	StatusPayment    DealStatus = "payment"
	StatusShipped    DealStatus = "shipped"
	StatusClosed     DealStatus = "closed"
	StatusCancelled  DealStatus = "cancelled"
)

// ValidStatuses contains all valid deal statuses in pipeline order.
var ValidStatuses = []DealStatus{
	StatusInitiated, StatusKYC, StatusContracted, StatusInspection,
	StatusPayment, StatusShipped, StatusClosed, StatusCancelled,
}

// IsValidStatus checks if the given status is valid.
func IsValidStatus(status DealStatus) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Commodity is the traded commodity class.
type Commodity string

const (
	CommodityGold    Commodity = "gold"
	CommoditySilver  Commodity = "silver"
	CommodityOil     Commodity = "oil"
	CommodityDiamond Commodity = "diamond"
)

// ValidCommodities contains all valid commodity values.
var ValidCommodities = []Commodity{CommodityGold, CommoditySilver, CommodityOil, CommodityDiamond}

// IsValidCommodity checks if the given commodity is valid.
func IsValidCommodity(c Commodity) bool {
	for _, v := range ValidCommodities {
		if v == c {
			return true
		}
	}
	return false
}

// Exclusivity is the exclusivity tier of a deal.
type Exclusivity string

const (
	ExclusivityStandard  Exclusivity = "standard"
	ExclusivityExclusive Exclusivity = "exclusive"
	ExclusivityPremier   Exclusivity = "premier"
)

// ValidExclusivities contains all valid exclusivity tiers.
var ValidExclusivities = []Exclusivity{ExclusivityStandard, ExclusivityExclusive, ExclusivityPremier}

// IsValidExclusivity checks if the given exclusivity tier is valid.
func IsValidExclusivity(e Exclusivity) bool {
	for _, v := range ValidExclusivities {
		if v == e {
			return true
		}
	}
	return false
}

// StatusChange is one entry in a deal's append-only status history.
type StatusChange struct {
	Status DealStatus `json:"status"`
	At     time.Time  `json:"at"`
}

// Deal is the aggregate root for a multi-party commodity trade. It owns its
// documents and status history exclusively; chain entries reference agents
// by id. Details are held only as a sealed envelope, never in plaintext.
type Deal struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Commodity   Commodity       `json:"commodity"`
	Exclusivity Exclusivity     `json:"exclusivity"`
	QuantityKg  float64         `json:"quantity_kg"`
	PricePerKg  float64         `json:"price_per_kg"`
	Location    string          `json:"location"`
	Details     crypto.Envelope `json:"details,omitempty"`
	Chain       []string        `json:"chain"`
	Status      DealStatus      `json:"status"`
	History     []StatusChange  `json:"history"`
	Documents   []*Document     `json:"documents"`
	InviteToken string          `json:"-"`
	InviteLink  string          `json:"invite_link,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by"`
}

// InChain reports whether the agent id is already part of the deal chain.
func (d *Deal) InChain(agentID string) bool {
	for _, id := range d.Chain {
		if id == agentID {
			return true
		}
	}
	return false
}

// FindDocument returns the document with the given id, or nil.
func (d *Deal) FindDocument(id uuid.UUID) *Document {
	for _, doc := range d.Documents {
		if doc.ID == id {
			return doc
		}
	}
	return nil
}

// Clone returns a deep copy of the deal. Repositories hand out clones so
// readers never hold a live reference into the store.
func (d *Deal) Clone() *Deal {
	out := *d
	out.Chain = append([]string(nil), d.Chain...)
	out.History = append([]StatusChange(nil), d.History...)
	out.Documents = make([]*Document, len(d.Documents))
	for i, doc := range d.Documents {
		copied := *doc
		out.Documents[i] = &copied
	}
	return &out
}
