package warmup

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/flowershop/lib/mycontext"
	"github.com/MarcGrol/flowershop/lib/myhttp"
	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/myvault"
	"github.com/MarcGrol/flowershop/services/storeconfig"
)

type webService struct {
	logger       mylog.Logger
	config       storeconfig.Provider
	vault        myvault.VaultReader[myvault.Token]
	providerName string
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(config storeconfig.Provider, vault myvault.VaultReader[myvault.Token], providerName string) *webService {
	return &webService{
		logger:       mylog.New("warmup"),
		config:       config,
		vault:        vault,
		providerName: providerName,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

// warmupPage opens the connections a first checkout would otherwise pay for
func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		snapshot := s.config.Fetch(c)
		if snapshot.Fallback {
			s.logger.Log(c, "", mylog.SeverityWarn, "Warmup: store configuration not reachable, defaults in effect")
		}

		_, _, err := s.vault.Get(c, myvault.TokenUID(s.providerName))
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
