package redisx

func ChannelTablesChanged() string {
	return "tables:changed"
}
