// Package all links every checkpoint store into the binary.
//
//	import _ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/all"
package all

import (
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/bolt"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/gcs"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/kafka"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/mongodb"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/mysql"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/nats"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/postgres"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/s3"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/snowflake"
)
