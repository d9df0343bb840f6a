// Package drivers pulls in every SQL backend so their init functions
// register with the driver registry. Import for side effects:
//
//	import _ "github.com/zoosky/prisma-engine/drivers"
package drivers

import (
	_ "github.com/zoosky/prisma-engine/drivers/mysql"
	_ "github.com/zoosky/prisma-engine/drivers/postgresql"
	_ "github.com/zoosky/prisma-engine/drivers/sqlite"
)
