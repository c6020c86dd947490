package testfixtures

import (
	"context"
	"testing"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

func TestServiceFactorySubmitUsesDeterministicIDs(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("fixture")))
	services := factory.NewServices(t)

	req, err := services.Requests.Submit(context.Background(), application.SubmitRequestParams{
		Principal: application.Principal{UserID: "teacher-1", DisplayName: "Teacher One"},
		Input: application.RequestInput{
			RoomCode:  "301",
			BaseDate:  ScenarioBaseDate,
			StartHour: "7",
			EndHour:   "9",
			WeekCount: 2,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID != "fixture-001" || factory.IDGenerator.Last() != req.ID {
		t.Fatalf("expected deterministic id, got %q", req.ID)
	}
	if !req.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected factory clock timestamp, got %v", req.CreatedAt)
	}
}

func TestServiceFactorySeedAndApprove(t *testing.T) {
	factory := NewServiceFactory()
	services := factory.NewServices(t)
	req := NewRequest(WithRequestID("seeded"))
	factory.SeedRequests(t, req)

	result, err := services.Reviews.Approve(context.Background(), application.ReviewParams{
		Principal: application.Principal{UserID: "admin", IsAdmin: true},
		RequestID: "seeded",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Written != 6 {
		t.Fatalf("expected 6 cells written, got %d", result.Written)
	}
	if result.Request.Status != persistence.RequestStatusApproved {
		t.Fatalf("expected approved status, got %s", result.Request.Status)
	}
}

func TestNewRequestOptions(t *testing.T) {
	req := NewRequest(WithRoom("302"), WithSlots("A1", "A2"), WithWeeks(1), WithRequester("t2", "Teacher Two"))
	if req.RoomCode != "302" || req.StartHour != "A1" || req.EndHour != "A2" || req.WeekCount != 1 {
		t.Fatalf("options not applied: %+v", req)
	}
	if req.RequesterID != "t2" || req.RequesterName != "Teacher Two" {
		t.Fatalf("requester not applied: %+v", req)
	}
	if req.Status != persistence.RequestStatusPending {
		t.Fatalf("expected pending default, got %s", req.Status)
	}
}
