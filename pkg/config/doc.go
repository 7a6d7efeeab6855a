// Package config loads the service configuration.
//
// Values are layered: built-in defaults, then the YAML file named by
// TENANCY_CONFIG_FILE, then TENANCY_* environment variables.
//
//	TENANCY_PORT="8080"
//	TENANCY_HEALTH_PORT="9090"
//	TENANCY_DB_DRIVER="postgres"        # or sqlite3 for local development
//	TENANCY_DATABASE_URL="postgres://tenancy@localhost/tenancy?sslmode=disable"
//	TENANCY_REDIS_URL="redis://localhost:6379/0"   # optional
//	TENANCY_S3_BUCKET="avatars"                    # optional
//	TENANCY_KAFKA_BROKERS="localhost:9092"         # optional
//	TENANCY_PENDING_RELATION_TTL="720h"
//	SECRET_KEY="..."                               # or TENANCY_SECRET_KEY
//
// Optional backends are disabled while their address is empty.
package config
