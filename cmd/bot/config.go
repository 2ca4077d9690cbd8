package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/dataaccess/connection"
	"github.com/wardenbot/warden/pkg/logging"
)

const (
	// AppName is the name of the application.
	AppName = "warden"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvMongoUri is the environment variable for the MongoDB URI.
	EnvMongoUri = `MONGO_URI`

	// EnvRedisAddr is the environment variable for the Redis address.
	EnvRedisAddr = `REDIS_ADDR`

	// EnvRedisPassword is the environment variable for the Redis password.
	EnvRedisPassword = `REDIS_PASSWORD`

	// EnvRedisDb is the environment variable for the Redis database number.
	EnvRedisDb = `REDIS_DB`

	// EnvTranscriptDir is the environment variable for the transcript
	// directory.
	EnvTranscriptDir = `TRANSCRIPT_DIR`

	// EnvWebsiteUrl is the environment variable for the public website URL
	// that transcripts are served from.
	EnvWebsiteUrl = `WEBSITE_URL`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`
)

var (
	// BotToken is the token for the bot.
	BotToken string

	// ApplicationId is the ID of the application.
	ApplicationId string

	// MongoUri is the URI for the MongoDB database.
	MongoUri string

	// RedisAddr is the address of the Redis server. Optional; without it the
	// stats cache is a no-op.
	RedisAddr string

	// RedisPassword is the password for the Redis server.
	RedisPassword string

	// RedisDb is the Redis database number.
	RedisDb int

	// TranscriptDir is the directory transcripts are stored in.
	TranscriptDir string

	// WebsiteUrl is the public base URL transcripts are linked from.
	WebsiteUrl string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string
)

func parseConfig() {
	if envBT := os.Getenv(EnvBotToken); envBT != "" {
		slog.Debug("Found bot token in environment", slog.String("key", EnvBotToken))
		BotToken = envBT
	}

	if envAppId := os.Getenv(EnvApplicationId); envAppId != "" {
		slog.Debug("Found application ID in environment", slog.String("key", EnvApplicationId))
		ApplicationId = envAppId
	}

	if envMongoUri := os.Getenv(EnvMongoUri); envMongoUri != "" {
		slog.Debug("Found MongoDB URI in environment", slog.String("key", EnvMongoUri))
		MongoUri = envMongoUri
	}

	if envRedisAddr := os.Getenv(EnvRedisAddr); envRedisAddr != "" {
		slog.Debug("Found Redis address in environment", slog.String("key", EnvRedisAddr))
		RedisAddr = envRedisAddr
	}

	RedisPassword = os.Getenv(EnvRedisPassword)

	if envRedisDb := os.Getenv(EnvRedisDb); envRedisDb != "" {
		db, err := strconv.Atoi(envRedisDb)
		if err != nil {
			slog.Error("Invalid Redis database number", slog.String("key", EnvRedisDb), slog.String(logging.KeyError, err.Error()))
			os.Exit(1)
		}
		RedisDb = db
	}

	if envDir := os.Getenv(EnvTranscriptDir); envDir != "" {
		TranscriptDir = envDir
	} else {
		TranscriptDir = "transcripts"
		slog.Info("No transcript directory provided in environment, defaulting to ./transcripts", slog.String("key", EnvTranscriptDir))
	}

	if envUrl := os.Getenv(EnvWebsiteUrl); envUrl != "" {
		WebsiteUrl = envUrl
	}

	if envMonitoringPort := os.Getenv(EnvMonitoringPort); envMonitoringPort != "" {
		MonitoringPort = envMonitoringPort
	} else {
		// Default to 8080 if not provided.
		MonitoringPort = "8080"
		slog.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}

	if BotToken != "" &&
		ApplicationId != "" &&
		MongoUri != "" {

		// All required environment variables have been provided.
		slog.Debug("All required environment variables have been provided")
		connectMongo()
		connectRedis()
		return
	}

	slog.Error("Not all required environment variables have been provided", slog.String(logging.KeyError, "Incomplete configuration"))
	os.Exit(1)
}

func connectMongo() {
	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = MongoUri

	db, err := mongoConn.Connect()
	if err != nil {
		slog.Error("Error connecting to mongo", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	} else if db == nil {
		slog.Error("MongoDB came back nil", slog.String(logging.KeyError, "MongoDB came back nil"))
		os.Exit(1)
	}

	dataaccess.MongoDB = db
	slog.Debug("Connected to MongoDB", slog.String("key", EnvMongoUri))
}

func connectRedis() {
	// Redis only backs the stats cache; the bot runs without it.
	if RedisAddr == "" {
		slog.Info("No Redis address provided, stats caching is disabled", slog.String("key", EnvRedisAddr))
		return
	}

	redisConn := &connection.Redis{
		Addr:     RedisAddr,
		Password: RedisPassword,
		DB:       RedisDb,
	}

	client, err := redisConn.Connect()
	if err != nil {
		slog.Error("Error connecting to redis", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}

	dataaccess.Redis = client
	slog.Debug("Connected to Redis", slog.String("key", EnvRedisAddr))
}
