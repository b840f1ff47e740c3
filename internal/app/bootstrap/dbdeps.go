// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/barbearia/calendario/internal/app/system/auth"
	"github.com/barbearia/calendario/internal/app/system/metrics"
	"github.com/barbearia/calendario/internal/app/system/ratelimit"
	"github.com/barbearia/calendario/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends ConnectDB builds. Background workers in it are
// created stopped; Startup starts them on the lifecycle context.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	// MongoConnected records whether the startup ping succeeded.
	MongoConnected bool
	// SchemaRetry applies the schema once MongoDB answers. Set only when
	// the startup ping failed.
	SchemaRetry *workers.SchemaRetry

	Redis   *redis.Client // nil when revocations live in memory
	Revoker auth.Revoker
	Sweeper *workers.RevocationSweep // nil with the Redis revoker
	Limiter *ratelimit.LoginLimiter
	Metrics *metrics.Metrics
}
