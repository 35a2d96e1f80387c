// Package config provides the configuration of a partsync deployment.
//
// A single Config structure covers the checkpoint store, blob compression,
// observability and logging. Only the store section named by
// checkpoint.store is read; the others keep their defaults.
//
// # Loading
//
//	cfg, err := config.Load("partsync.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Load starts from NewDefault, applies the file, then applies PARTSYNC_*
// environment variables, where nested keys are joined with underscores:
//
//	PARTSYNC_CHECKPOINT_STORE=postgres
//	PARTSYNC_CHECKPOINT_POSTGRES_DSN=postgres://...
//
// The file itself may reference environment variables with ${VAR_NAME}:
//
//	# partsync.yaml
//	name: tickets-sync
//	checkpoint:
//	  store: postgres
//	  postgres:
//	    dsn: postgres://sync:${PG_PASSWORD}@db:5432/state
//
// The loaded configuration is always validated. Save writes a Config back as
// YAML, which the CLI uses for `state copy`.
package config
