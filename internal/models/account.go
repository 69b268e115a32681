package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SegmentIndividual = "individual"
	SegmentAgency     = "agency"
)

type Account struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	HashedPassword string
	Segment        string
}
