package dataaccess

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB is the Mongo client. This is a connection pool.
var MongoDB *mongo.Client

// Redis is the Redis client used for the stats cache. It may be nil when no
// Redis address is configured; callers must treat the cache as optional.
var Redis *redis.Client

const mongoDatabase = "warden"

const (
	collectionGuilds   = "guilds"
	collectionTickets  = "tickets"
	collectionMessages = "ticket_messages"
	collectionStats    = "ticket_stats"
)

// ErrNotFound is returned by DALs when no document matches the query.
var ErrNotFound = errors.New("not found")
