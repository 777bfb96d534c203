package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"lifeconnect/internal/organ/handler/mocks"
	"lifeconnect/internal/organ/models"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/organ-mocks.go -package=mocks Service

type OrganHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestOrganHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrganHandlerSuite))
}

func (s *OrganHandlerSuite) SetupTest() {
	s.service = mocks.NewMockService(gomock.NewController(s.T()))
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *OrganHandlerSuite) TestRegister() {
	s.Run("creates the organ", func() {
		s.service.EXPECT().RegisterOrgan(gomock.Any(), domain.Identity("donor-d"), "kidney", 24).
			Return(&models.Organ{ID: 0, Status: models.StatusAvailable}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs", models.RegisterOrganRequest{
			DonorID: "donor-d", OrganType: "kidney", ViabilityHours: 24,
		})
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusCreated, rr.Code)
		s.Equal(models.StatusAvailable, testutil.UnmarshalResponse[models.Organ](s.T(), rr).Status)
	})

	s.Run("missing donor id never reaches the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs", models.RegisterOrganRequest{OrganType: "kidney"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_argument")
	})

	s.Run("unknown fields are rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs", map[string]any{"donor_id": "d", "blood": "O+"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_argument")
	})
}

func (s *OrganHandlerSuite) TestMatch() {
	s.Run("passes organ id, recipient and score", func() {
		score := 91
		s.service.EXPECT().MatchOrgan(gomock.Any(), domain.OrganID(3), domain.Identity("recipient-1"), 91).
			Return(&models.Organ{ID: 3, Status: models.StatusMatched, MatchScore: &score}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/3/match", map[string]any{
			"recipient_id": "recipient-1", "score": 91,
		})
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("missing score is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/3/match", map[string]any{"recipient_id": "recipient-1"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_argument")
	})

	s.Run("lost race maps to conflict", func() {
		s.service.EXPECT().MatchOrgan(gomock.Any(), domain.OrganID(3), domain.Identity("recipient-2"), 10).
			Return(nil, dErrors.New(dErrors.CodeInvalidStateTransition, "organ cannot move from Matched to Matched"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/3/match", map[string]any{
			"recipient_id": "recipient-2", "score": 10,
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state_transition")
	})
}

func (s *OrganHandlerSuite) TestTransitions() {
	s.service.EXPECT().StartTransport(gomock.Any(), domain.OrganID(0), "bafy-doc").
		Return(&models.Organ{Status: models.StatusInTransit}, nil)
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/0/transport",
		models.StartTransportRequest{TransportDocRef: "bafy-doc"}))
	s.Equal(http.StatusOK, rr.Code)

	s.service.EXPECT().CompleteTransplant(gomock.Any(), domain.OrganID(0)).
		Return(nil, dErrors.New(dErrors.CodeExpired, "organ expired in transit"))
	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/0/transplant", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusGone, "expired")

	s.service.EXPECT().MarkExpired(gomock.Any(), domain.OrganID(0)).
		Return(&models.Organ{Status: models.StatusExpired}, nil)
	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/0/expire", nil))
	s.Equal(http.StatusOK, rr.Code)
}

func (s *OrganHandlerSuite) TestGetAndList() {
	s.Run("bad id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/organs/abc", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_argument")
	})

	s.Run("not found", func() {
		s.service.EXPECT().GetOrgan(gomock.Any(), domain.OrganID(7)).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "organ not found"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/organs/7", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("list forwards the status filter", func() {
		s.service.EXPECT().ListOrgans(gomock.Any(), "Available").Return(nil, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/organs?status=Available", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.Empty(testutil.UnmarshalResponse[listResponse](s.T(), rr).Organs)
	})
}
