package web

import (
	"time"

	"github.com/mvoicu/dansport/internal/services/federation/domain/participation"
	"github.com/mvoicu/dansport/internal/services/federation/storage"
)

type eventView struct {
	ID          string     `json:"id"`
	CreatorID   string     `json:"creator_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	AllDay      bool       `json:"all_day"`
	IsApproved  bool       `json:"is_approved"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func renderEvent(event storage.Event) eventView {
	return eventView{
		ID:          event.ID,
		CreatorID:   event.CreatorID,
		Title:       event.Title,
		Description: event.Description,
		Location:    event.Location,
		StartAt:     event.StartAt,
		EndAt:       event.EndAt,
		AllDay:      event.AllDay,
		IsApproved:  event.IsApproved,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

func renderEvents(list []storage.Event) []eventView {
	views := make([]eventView, 0, len(list))
	for _, event := range list {
		views = append(views, renderEvent(event))
	}
	return views
}

type partnerView struct {
	Name             string     `json:"name"`
	License          string     `json:"license,omitempty"`
	MinQualification bool       `json:"min_qualification"`
	Birthdate        *time.Time `json:"birthdate,omitempty"`
}

type pairView struct {
	ID          string      `json:"id"`
	ClubID      string      `json:"club_id"`
	Partner1    partnerView `json:"partner1"`
	Partner2    partnerView `json:"partner2"`
	Coach       string      `json:"coach,omitempty"`
	AgeCategory string      `json:"age_category,omitempty"`
	ClassLevel  string      `json:"class_level,omitempty"`
	Discipline  string      `json:"discipline,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func renderPartner(partner storage.Partner) partnerView {
	return partnerView{
		Name:             partner.Name,
		License:          partner.License,
		MinQualification: partner.MinQualification,
		Birthdate:        partner.Birthdate,
	}
}

func renderPair(pair storage.Pair) pairView {
	return pairView{
		ID:          pair.ID,
		ClubID:      pair.ClubID,
		Partner1:    renderPartner(pair.Partner1),
		Partner2:    renderPartner(pair.Partner2),
		Coach:       pair.Coach,
		AgeCategory: pair.AgeCategory,
		ClassLevel:  pair.ClassLevel,
		Discipline:  pair.Discipline,
		CreatedAt:   pair.CreatedAt,
		UpdatedAt:   pair.UpdatedAt,
	}
}

func renderPairs(list []storage.Pair) []pairView {
	views := make([]pairView, 0, len(list))
	for _, pair := range list {
		views = append(views, renderPair(pair))
	}
	return views
}

type rostersView struct {
	Pairs    []pairView `json:"pairs"`
	JudgeIDs []string   `json:"judge_ids"`
}

func renderRosters(rosters storage.Rosters) rostersView {
	judges := rosters.JudgeIDs
	if judges == nil {
		judges = []string{}
	}
	return rostersView{Pairs: renderPairs(rosters.Pairs), JudgeIDs: judges}
}

type eventWithRostersView struct {
	Event   eventView   `json:"event"`
	Rosters rostersView `json:"rosters"`
}

func renderEventWithRosters(state participation.EventWithRosters) eventWithRostersView {
	return eventWithRostersView{
		Event:   renderEvent(state.Event),
		Rosters: renderRosters(state.Rosters),
	}
}

type photoView struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	PairID      string    `json:"pair_id,omitempty"`
	UploadedBy  string    `json:"uploaded_by"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	ByteSize    int64     `json:"byte_size"`
	CreatedAt   time.Time `json:"created_at"`
}

func renderPhoto(photo storage.Photo) photoView {
	return photoView{
		ID:          photo.ID,
		EventID:     photo.EventID,
		PairID:      photo.PairID,
		UploadedBy:  photo.UploadedBy,
		URL:         photo.URL,
		Filename:    photo.Filename,
		ContentType: photo.ContentType,
		ByteSize:    photo.ByteSize,
		CreatedAt:   photo.CreatedAt,
	}
}

func renderPhotos(list []storage.Photo) []photoView {
	views := make([]photoView, 0, len(list))
	for _, photo := range list {
		views = append(views, renderPhoto(photo))
	}
	return views
}

type resultView struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	PairID    string    `json:"pair_id,omitempty"`
	CreatedBy string    `json:"created_by"`
	Category  string    `json:"category,omitempty"`
	Round     string    `json:"round,omitempty"`
	Place     *int      `json:"place,omitempty"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func renderResult(result storage.Result) resultView {
	return resultView{
		ID:        result.ID,
		EventID:   result.EventID,
		PairID:    result.PairID,
		CreatedBy: result.CreatedBy,
		Category:  result.Category,
		Round:     result.Round,
		Place:     result.Place,
		Score:     result.Score,
		CreatedAt: result.CreatedAt,
	}
}

func renderResults(list []storage.Result) []resultView {
	views := make([]resultView, 0, len(list))
	for _, result := range list {
		views = append(views, renderResult(result))
	}
	return views
}

type solicitationView struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	ClubID    string    `json:"club_id"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func renderSolicitation(item storage.Solicitation) solicitationView {
	return solicitationView{
		ID:        item.ID,
		EventID:   item.EventID,
		ClubID:    item.ClubID,
		Message:   item.Message,
		CreatedAt: item.CreatedAt,
	}
}

func renderSolicitations(list []storage.Solicitation) []solicitationView {
	views := make([]solicitationView, 0, len(list))
	for _, item := range list {
		views = append(views, renderSolicitation(item))
	}
	return views
}
