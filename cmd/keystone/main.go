package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"flag"
	"log"
	"math/big"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/custodykit/keystone/adapters/events"
	"github.com/custodykit/keystone/adapters/idp"
	"github.com/custodykit/keystone/adapters/registry"
	"github.com/custodykit/keystone/adapters/signer"
	"github.com/custodykit/keystone/adapters/signingsvc"
	"github.com/custodykit/keystone/adapters/store"
	"github.com/custodykit/keystone/adapters/tokenizer"
	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/internal/config"
	"github.com/custodykit/keystone/internal/metrics"
	"github.com/custodykit/keystone/service"
	keystonehttp "github.com/custodykit/keystone/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Session credentials are signed with an ephemeral key; restarting the
	// process invalidates outstanding sessions, which is acceptable because
	// they are reissued, never renewed.
	sessionKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate session signing key: %v", err)
	}

	fundingKey := os.Getenv("KEYSTONE_FUNDING_KEY")
	if fundingKey == "" {
		log.Fatal("KEYSTONE_FUNDING_KEY is required")
	}
	fundingSigner, err := signer.NewLocal(fundingKey)
	if err != nil {
		log.Fatalf("Failed to load funding signer: %v", err)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)

	wmLogger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		wmLogger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	chain, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("Failed to dial chain RPC: %v", err)
	}

	registryClient := registry.NewClient(cfg.Relay.URL, cfg.Relay.APIKey, nil, chain)
	idpClient := idp.NewClient(cfg.Identity.URL, cfg.Identity.ProjectID, cfg.Identity.Secret, nil)
	signingClient := signingsvc.NewClient(cfg.Relay.URL, nil)
	consumedStore := store.NewRedisStore(redisClient)
	eventPub := events.NewWatermillPublisher(publisher)
	jwtTokenizer := tokenizer.NewJWTTokenizer(sessionKey)
	m := metrics.New(prometheus.DefaultRegisterer)

	verifier := service.NewIdentityVerifier(idpClient)
	resolver := service.NewAccountResolver(registryClient)
	minter := service.NewKeyMinter(registryClient, consumedStore, m, service.MinterConfig{
		PollInterval: cfg.Mint.PollInterval,
		MaxAttempts:  cfg.Mint.MaxAttempts,
		PollDeadline: cfg.Mint.PollDeadline,
	})
	issuer := service.NewSessionIssuer(jwtTokenizer)
	permissions, err := service.NewPermissionManager(registryClient, fundingSigner, eventPub, m, service.PermissionManagerConfig{
		Contract:       common.HexToAddress(cfg.Chain.PermissionsContract),
		ChainID:        big.NewInt(cfg.Chain.ChainID),
		FeeCeilingGwei: cfg.Chain.FeeCeilingGwei,
	})
	if err != nil {
		log.Fatalf("Failed to create permission manager: %v", err)
	}
	executor := service.NewActionExecutor(signingClient)

	action := core.ActionRef{Kind: core.ActionRefCID, CID: os.Getenv("KEYSTONE_ACTION_CID")}
	flow := service.NewOrchestrator(verifier, resolver, minter, issuer, permissions, executor, eventPub, action)

	router := keystonehttp.SetupRouter(flow, jwtTokenizer)
	router.GET("/metrics", func(c *gin.Context) {
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})

	if err := router.Run(cfg.Listen); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
