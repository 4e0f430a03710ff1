package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	redisinfra "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/metrics"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), cfg)
		},
	}
}

// collaborators is the persistence side of the engine, backed by postgres or by memory.
type collaborators struct {
	questions    app.QuestionSource
	participants app.ParticipantRecords
	sessions     app.SessionRecords
	answers      app.AnswerRecords
	close        func()
}

func openCollaborators(ctx context.Context, cfg config.Config) (collaborators, error) {
	if cfg.Postgres.URL == "" {
		fx, err := memory.LoadFixtures(cfg.Quiz.Fixtures)
		if err != nil {
			return collaborators{}, err
		}
		b := memory.NewBackend(fx)
		log.Info().Int("quizzes", len(fx.Quizzes)).Int("sessions", len(fx.Sessions)).Msg("using in-memory records")
		return collaborators{
			questions:    b.Catalog,
			participants: b.Participants,
			sessions:     b.Sessions,
			answers:      b.Answers,
			close:        func() {},
		}, nil
	}

	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return collaborators{}, err
		}
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return collaborators{}, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Msg("using postgres records")
	return collaborators{
		questions:    postgres.NewQuestions(pool),
		participants: postgres.NewParticipants(pool),
		sessions:     postgres.NewSessions(pool),
		answers:      postgres.NewAnswers(pool),
		close:        pool.Close,
	}, nil
}

func runServer(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collab, err := openCollaborators(ctx, cfg)
	if err != nil {
		return err
	}
	defer collab.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	markerTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	clock := clockwork.NewRealClock()

	var (
		questions app.QuestionSource
		store     app.GameStateStore
		markers   *redisinfra.SessionStore
	)
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, collab.questions, quizTTL)
		owner, _ := os.Hostname()
		markers = redisinfra.NewSessionStore(redisClient, markerTTL, owner+"/"+uuid.NewString())
		store = markers
	} else {
		questions = memory.NewQuestionRepository(collab.questions, quizTTL)
		store = memory.NewSessionStore()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := app.NewEngine(app.Config{
		Store:            store,
		Questions:        questions,
		Participants:     collab.participants,
		Sessions:         collab.sessions,
		Answers:          collab.answers,
		Clock:            clock,
		Metrics:          metrics.New(reg),
		DefaultTimeLimit: config.TTLDuration(cfg.Quiz.DefaultTimeLimit, 0),
	})
	defer engine.Shutdown()

	ws := transport.NewWSHandler(engine, transport.Options{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		PingInterval:   config.TTLDuration(cfg.WebSocket.PingInterval, 0),
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           transport.NewRouter(ws, reg),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		timeout := config.TTLDuration(cfg.Server.ShutdownTimeout, 10*time.Second)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if markers != nil {
		g.Go(func() error {
			return markers.KeepAlive(gctx, clock, markerTTL/3)
		})
	}
	return g.Wait()
}
