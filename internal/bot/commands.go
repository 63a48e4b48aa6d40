package bot

// Command constants for Telegram bot commands.
const (
	CommandStart   = "/start"
	CommandCatalog = "/catalog"
	CommandHistory = "/history"
	CommandCancel  = "/cancel"
)
