package main

// Compiled-in modules. Each registers itself with the core registry.
import (
	_ "github.com/flemzord/warden/internal/gateway"
	_ "github.com/flemzord/warden/modules/channel/telegram"
	_ "github.com/flemzord/warden/modules/cron/announcements"
	_ "github.com/flemzord/warden/modules/events/nats"
	_ "github.com/flemzord/warden/modules/provider/openai"
	_ "github.com/flemzord/warden/modules/store/file"
	_ "github.com/flemzord/warden/modules/store/redis"
	_ "github.com/flemzord/warden/modules/store/sqlite"
)
