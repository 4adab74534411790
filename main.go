package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/MarcGrol/flowershop/lib/myhttpclient"
	"github.com/MarcGrol/flowershop/lib/mypublisher"
	"github.com/MarcGrol/flowershop/lib/mypubsub"
	"github.com/MarcGrol/flowershop/lib/myqueue"
	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
	"github.com/MarcGrol/flowershop/lib/myuuid"
	"github.com/MarcGrol/flowershop/lib/myvault"
	"github.com/MarcGrol/flowershop/services/checkout"
	"github.com/MarcGrol/flowershop/services/checkoutmodel"
	"github.com/MarcGrol/flowershop/services/draft"
	"github.com/MarcGrol/flowershop/services/funnel"
	"github.com/MarcGrol/flowershop/services/identity"
	"github.com/MarcGrol/flowershop/services/orders"
	"github.com/MarcGrol/flowershop/services/payment"
	"github.com/MarcGrol/flowershop/services/paymentadyen"
	"github.com/MarcGrol/flowershop/services/paymentapi"
	"github.com/MarcGrol/flowershop/services/paymentmollie"
	"github.com/MarcGrol/flowershop/services/paymentstripe"
	"github.com/MarcGrol/flowershop/services/storeconfig"
	"github.com/MarcGrol/flowershop/services/warmup"
)

const (
	draftTTL        = 30 * 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	c := context.Background()

	router := mux.NewRouter()
	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	vault, vaultCleanup, err := myvault.New[myvault.Token](c)
	if err != nil {
		log.Fatalf("Error creating vault: %s", err)
	}
	defer vaultCleanup()

	keyValue, keyValueCleanup, err := newKeyValue(c, nower)
	if err != nil {
		log.Fatalf("Error creating draft storage: %s", err)
	}
	defer keyValueCleanup()
	persistence := draft.New(keyValue, nower)

	config := storeconfig.NewRemoteProvider(os.Getenv("STORE_CONFIG_URL"), myhttpclient.New())

	orderService, err := newOrderService(c, router, nower, uuider)
	if err != nil {
		log.Fatalf("Error creating order service: %s", err)
	}

	providerName, initializer, err := newInitializer(vault, nower)
	if err != nil {
		log.Fatalf("Error creating payment initializer: %s", err)
	}

	dispatcher := payment.NewDispatcher(orderService, initializer, config, persistence, nower)
	defer dispatcher.Close()

	sessionStore, sessionStoreCleanup, err := mystore.New[checkoutmodel.Session](c)
	if err != nil {
		log.Fatalf("Error creating session store: %s", err)
	}
	defer sessionStoreCleanup()

	checkoutService := checkout.NewWebService(sessionStore, config, persistence, dispatcher,
		newAuthenticator(uuider), publisher, nower, os.Getenv("FRONTEND_URL"))
	err = checkoutService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering checkout endpoints: %s", err)
	}

	funnelStore, funnelStoreCleanup, err := mystore.New[funnel.DailyFunnel](c)
	if err != nil {
		log.Fatalf("Error creating funnel store: %s", err)
	}
	defer funnelStoreCleanup()

	funnelService := funnel.NewWebService(funnelStore, pubsub, nower, publicBaseURL())
	err = funnelService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering funnel endpoints: %s", err)
	}

	warmupService := warmup.NewService(config, vault, providerName)
	warmupService.RegisterEndpoints(c, router)

	startWebServerBlocking(router)
}

// newKeyValue keeps drafts in redis when configured, otherwise in the regular store
func newKeyValue(c context.Context, nower mytime.Nower) (draft.KeyValue, func(), error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		err := client.Ping(c).Err()
		if err != nil {
			client.Close()
			return nil, func() {}, fmt.Errorf("error connecting to redis at %s: %s", addr, err)
		}
		return draft.NewRedisKeyValue(client, draftTTL), func() { client.Close() }, nil
	}

	store, cleanup, err := mystore.New[draft.Record](c)
	if err != nil {
		return nil, func() {}, err
	}
	return draft.NewStoreKeyValue(store, nower), cleanup, nil
}

// newOrderService falls back to an in-process fake that is also reachable over http
func newOrderService(c context.Context, router *mux.Router, nower mytime.Nower, uuider myuuid.UUIDer) (orders.Service, error) {
	baseURL := os.Getenv("ORDER_SERVICE_URL")
	if baseURL != "" {
		return orders.NewHTTPService(baseURL, myhttpclient.New()), nil
	}

	log.Printf("ORDER_SERVICE_URL not set: using fake order service")
	store, _, err := mystore.New[orders.Order](c)
	if err != nil {
		return nil, err
	}
	fake := orders.NewFakeService(store, nower, uuider)
	orders.NewFakeWebService(fake).RegisterEndpoints(c, router)
	return fake, nil
}

func newAuthenticator(uuider myuuid.UUIDer) identity.Authenticator {
	baseURL := os.Getenv("AUTH_SERVICE_URL")
	if baseURL != "" {
		return identity.NewHTTPAuthenticator(baseURL, myhttpclient.New())
	}
	log.Printf("AUTH_SERVICE_URL not set: using fake authenticator (code %s)", identity.FakeCode)
	return identity.NewFakeAuthenticator(uuider)
}

func newInitializer(vault myvault.VaultReader[myvault.Token], nower mytime.Nower) (string, paymentapi.Initializer, error) {
	switch providerName := os.Getenv("PAYMENT_PROVIDER"); providerName {
	case paymentadyen.ProviderName:
		config := paymentadyen.Config{
			Environment:     getenvOr("ADYEN_ENVIRONMENT", "TEST"),
			MerchantAccount: os.Getenv("ADYEN_MERCHANT_ACCOUNT"),
			ClientKey:       os.Getenv("ADYEN_CLIENT_KEY"),
			APIKey:          os.Getenv("ADYEN_API_KEY"),
		}
		payer := paymentadyen.NewPayer(config.Environment, config.APIKey)
		return providerName, paymentadyen.NewInitializer(config, payer, vault, nower), nil

	case paymentmollie.ProviderName:
		payer, err := paymentmollie.NewPayer(os.Getenv("MOLLIE_TEST_MODE") != "false")
		if err != nil {
			return "", nil, err
		}
		return providerName, paymentmollie.NewInitializer(os.Getenv("MOLLIE_API_KEY"), payer, vault, nower), nil

	case paymentstripe.ProviderName, "":
		return paymentstripe.ProviderName, paymentstripe.NewInitializer(os.Getenv("STRIPE_API_KEY"), paymentstripe.NewPayer(), vault, nower), nil

	default:
		return "", nil, fmt.Errorf("unknown payment provider '%s'", providerName)
	}
}

func publicBaseURL() string {
	if baseURL := os.Getenv("PUBLIC_BASE_URL"); baseURL != "" {
		return baseURL
	}
	return fmt.Sprintf("http://localhost:%s", getenvOr("PORT", "8080"))
}

func getenvOr(name string, defaultValue string) string {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	return value
}

// startWebServerBlocking returns after a termination signal once in-flight requests are done
func startWebServerBlocking(router *mux.Router) {
	port := getenvOr("PORT", "8080")
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting webserver on port %s: %s", port, err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("Error shutting down webserver: %s", err)
	}
}
