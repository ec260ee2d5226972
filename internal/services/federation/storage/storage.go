// Package storage defines persistence contracts for federation event state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrQuotaExceeded indicates a conditional insert hit its ceiling.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Partner stores one dancer of a pair.
type Partner struct {
	Name             string
	License          string
	MinQualification bool
	Birthdate        *time.Time
}

// Pair stores one competing unit owned by a club.
//
// ClubID is immutable after creation and is the sole authorization anchor
// for pair-scoped operations.
type Pair struct {
	ID          string
	ClubID      string
	Partner1    Partner
	Partner2    Partner
	Coach       string
	AgeCategory string
	ClassLevel  string
	Discipline  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event stores one federation event record.
type Event struct {
	ID          string
	CreatorID   string
	Title       string
	Description string
	Location    string
	StartAt     time.Time
	EndAt       *time.Time
	AllDay      bool
	IsApproved  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Rosters stores an event's attending pairs and judges.
type Rosters struct {
	Pairs    []Pair
	JudgeIDs []string
}

// Photo stores one uploaded photo's metadata. PairID is empty when the
// photo was admitted under the uploader's personal quota.
type Photo struct {
	ID          string
	EventID     string
	PairID      string
	UploadedBy  string
	BlobKey     string
	URL         string
	Filename    string
	ContentType string
	ByteSize    int64
	CreatedAt   time.Time
}

// Result stores one judged result entry. PairID is empty for general
// (pair-less) results.
type Result struct {
	ID        string
	EventID   string
	PairID    string
	CreatedBy string
	Category  string
	Round     string
	Place     *int
	Score     *float64
	CreatedAt time.Time
}

// Solicitation stores one club's request to participate in an event.
// At most one solicitation exists per (event, club).
type Solicitation struct {
	ID        string
	EventID   string
	ClubID    string
	Message   string
	CreatedAt time.Time
}

// EventFilter scopes event listing to what the requester may see.
// Unapproved events are visible only to their creator unless Privileged.
type EventFilter struct {
	RequesterID string
	Privileged  bool
	From        *time.Time
	To          *time.Time
}

// PairStore persists pair registry records.
type PairStore interface {
	PutPair(ctx context.Context, pair Pair) error
	GetPair(ctx context.Context, id string) (Pair, error)
	ListPairsByClub(ctx context.Context, clubID string) ([]Pair, error)
	ListPairsByIDs(ctx context.Context, ids []string) ([]Pair, error)
	DeletePair(ctx context.Context, id string) error
}

// EventStore persists event records.
type EventStore interface {
	PutEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	SetEventApproval(ctx context.Context, id string, approved bool, at time.Time) error
	DeleteEvent(ctx context.Context, id string) error
}

// RosterStore mutates event rosters with atomic set semantics.
//
// Add and remove calls must be implemented as storage-level set updates,
// never as read-modify-write of a full event record, so concurrent roster
// edits from different clubs cannot lose updates.
type RosterStore interface {
	AddEventPairs(ctx context.Context, eventID string, pairIDs []string, at time.Time) error
	RemoveEventPairs(ctx context.Context, eventID string, pairIDs []string) error
	AddEventJudge(ctx context.Context, eventID, judgeID string, at time.Time) error
	RemoveEventJudge(ctx context.Context, eventID, judgeID string) error
	GetRosters(ctx context.Context, eventID string) (Rosters, error)
}

// PhotoStore persists photo metadata under per-scope ceilings.
//
// The conditional inserts perform the quota count and the append as one
// atomic statement and return ErrQuotaExceeded when the ceiling is already
// reached, so concurrent submissions cannot overshoot it.
type PhotoStore interface {
	InsertPairPhoto(ctx context.Context, photo Photo, ceiling int) error
	InsertUploaderPhoto(ctx context.Context, photo Photo, ceiling int) error
	CountPairPhotos(ctx context.Context, eventID, pairID string) (int, error)
	CountUploaderPhotos(ctx context.Context, eventID, uploaderID string) (int, error)
	GetPhoto(ctx context.Context, eventID, photoID string) (Photo, error)
	ListEventPhotos(ctx context.Context, eventID string) ([]Photo, error)
	DeletePhoto(ctx context.Context, eventID, photoID string) error
}

// ResultStore persists judged result entries.
type ResultStore interface {
	InsertResult(ctx context.Context, result Result) error
	GetResult(ctx context.Context, eventID, resultID string) (Result, error)
	ListEventResults(ctx context.Context, eventID string) ([]Result, error)
	DeleteResult(ctx context.Context, eventID, resultID string) error
}

// SolicitationStore persists club participation requests.
type SolicitationStore interface {
	InsertSolicitation(ctx context.Context, solicitation Solicitation) error
	ListEventSolicitations(ctx context.Context, eventID string) ([]Solicitation, error)
}
