package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/citasalud/bookingcore/internal/adapters/cache"
	"github.com/citasalud/bookingcore/internal/adapters/database"
	"github.com/citasalud/bookingcore/internal/adapters/events"
	"github.com/citasalud/bookingcore/internal/adapters/identity"
	"github.com/citasalud/bookingcore/internal/application/services"
	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/providers"
	redisclient "github.com/citasalud/bookingcore/internal/infrastructure/clients/redis"
	"github.com/citasalud/bookingcore/internal/infrastructure/clients/supabase"
	"github.com/citasalud/bookingcore/internal/infrastructure/observability"
	"github.com/citasalud/bookingcore/pkg/config"
	"github.com/citasalud/bookingcore/pkg/retry"
)

const usage = `usage: bookingctl <command> [flags]

commands:
  signup   -email -password -name [-phone]
  signin   -email -password
  signout
  whoami
  admin
  list             appointments for the signed-in user
  list-all         every appointment (admin)
  create  -date [-time] [-notes]
  confirm -id
  cancel  -id
`

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.Log.Service, cfg.Log.Env)
	logger := observability.GetLogger()

	ctx := context.Background()

	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to set up telemetry")
		}
		defer func() { _ = shutdown(ctx) }()
	}

	client, err := supabase.NewClient(&cfg.Backend)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build backend client")
	}
	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init metrics")
	}
	client.SetMetrics(metrics)

	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return client.Ping(ctx)
	}); err != nil {
		logger.Fatal().Err(err).Msg("backend unreachable")
	}

	var cacheProvider providers.CacheProvider
	var bus providers.SessionEventBus
	if cfg.Redis.Enabled {
		rc, err := redisclient.NewClient(&cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rc.Close()
		cacheProvider = cache.NewRedisAdapter(rc)
		bus = events.NewRedisEventBus(rc)
	} else {
		cacheProvider = cache.NewMemoryAdapter()
		bus = events.NewMemoryEventBus()
	}
	defer bus.Close()

	sessions := services.NewSessionService(
		identity.NewSupabaseProvider(client),
		database.NewProfileAdapter(client),
		cacheProvider,
		bus,
		cfg.Backend.RequestTimeout,
	)
	sessions.SetMetrics(metrics)
	appointments := services.NewAppointmentService(database.NewAppointmentAdapter(client), sessions)

	// Each invocation is a fresh process; rehydrate the session issued
	// by an earlier signin so the appointment verbs have an identity.
	statePath := sessionPath()
	if ident := loadSession(statePath); ident != nil {
		sessions.Restore(ident)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	email := flags.String("email", "", "email address")
	password := flags.String("password", "", "password")
	name := flags.String("name", "", "full name")
	phone := flags.String("phone", "", "phone number")
	date := flags.String("date", "", "appointment date (YYYY-MM-DD)")
	timeOfDay := flags.String("time", "", "appointment time (HH:MM)")
	notes := flags.String("notes", "", "appointment notes")
	id := flags.String("id", "", "appointment id")
	_ = flags.Parse(os.Args[2:])

	switch command {
	case "signup":
		printJSON(sessions.SignUp(ctx, *email, *password, *name, *phone))
	case "signin":
		printJSON(sessions.SignIn(ctx, *email, *password))
	case "signout":
		printJSON(sessions.SignOut(ctx))
	case "whoami":
		printJSON(sessions.CurrentUser(ctx))
	case "admin":
		printJSON(map[string]bool{"is_admin": sessions.IsAdmin(ctx)})
	case "list":
		printJSON(appointments.GetUserAppointments(ctx))
	case "list-all":
		printJSON(appointments.GetAllAppointments(ctx))
	case "create":
		printJSON(appointments.CreateAppointment(ctx, *date, *timeOfDay, *notes))
	case "confirm":
		printJSON(appointments.UpdateAppointmentStatus(ctx, *id, entities.AppointmentStatusConfirmed))
	case "cancel":
		printJSON(appointments.UpdateAppointmentStatus(ctx, *id, entities.AppointmentStatusCancelled))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := saveSession(statePath, sessions.Identity()); err != nil {
		logger.Warn().Err(err).Msg("failed to persist session state")
	}
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
