package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"lifeconnect/internal/custody/handler/mocks"
	"lifeconnect/internal/custody/models"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/custody-mocks.go -package=mocks Service

type CustodyHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestCustodyHandlerSuite(t *testing.T) {
	suite.Run(t, new(CustodyHandlerSuite))
}

func (s *CustodyHandlerSuite) SetupTest() {
	s.service = mocks.NewMockService(gomock.NewController(s.T()))
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *CustodyHandlerSuite) TestLogEvent() {
	s.Run("returns the assigned sequence", func() {
		s.service.EXPECT().LogEvent(gomock.Any(), domain.OrganID(0), "Pickup", "Hospital A", "harvested", "").
			Return(&models.Event{OrganID: 0, Seq: 0, Kind: models.KindPickup}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/0/custody", models.LogEventRequest{
			Kind: "Pickup", Location: "Hospital A", Notes: "harvested",
		})
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusCreated, rr.Code)
		s.Equal(models.KindPickup, testutil.UnmarshalResponse[models.Event](s.T(), rr).Kind)
	})

	s.Run("unknown organ", func() {
		s.service.EXPECT().LogEvent(gomock.Any(), domain.OrganID(9), "Pickup", "", "", "").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "organ not found"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/9/custody", models.LogEventRequest{Kind: "Pickup"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *CustodyHandlerSuite) TestVerify() {
	s.Run("parses the sequence number", func() {
		s.service.EXPECT().VerifyEvent(gomock.Any(), domain.OrganID(2), int64(5)).
			Return(&models.Event{OrganID: 2, Seq: 5, Verified: true}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/2/custody/5/verify", nil))

		s.Equal(http.StatusOK, rr.Code)
		s.True(testutil.UnmarshalResponse[models.Event](s.T(), rr).Verified)
	})

	s.Run("negative sequence is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/2/custody/-1/verify", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_argument")
	})
}

func (s *CustodyHandlerSuite) TestEmergencyStop() {
	s.service.EXPECT().EmergencyStop(gomock.Any(), domain.OrganID(1), "cooler failure").
		Return(&models.Event{OrganID: 1, Seq: 3, Kind: models.KindEmergency, Location: models.EmergencyStopLocation}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/organs/1/custody/emergency-stop",
		models.EmergencyStopRequest{Reason: "cooler failure"})
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusCreated, rr.Code)
	s.Equal(int64(3), testutil.UnmarshalResponse[models.Event](s.T(), rr).Seq)
}

func (s *CustodyHandlerSuite) TestReads() {
	s.Run("empty chain renders as an empty list", func() {
		s.service.EXPECT().GetChain(gomock.Any(), domain.OrganID(4)).Return([]*models.Event{}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/organs/4/custody", nil))

		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"events":[]}`, rr.Body.String())
	})

	s.Run("latest on an empty chain", func() {
		s.service.EXPECT().GetLatestEvent(gomock.Any(), domain.OrganID(4)).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "custody chain is empty"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/organs/4/custody/latest", nil))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}
