package consts

const (
	MediaTempKey = "media:temp"
	PostSlugKey  = "post:slug:"
)

const (
	SlugReserveLock = "lock:post:slug:"
)
