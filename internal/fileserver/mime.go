package fileserver

// fallbackTypes is the extension table applied when the host platform's
// content-type probe (mime.TypeByExtension) returns nothing (spec §4.4
// step 5).
var fallbackTypes = map[string]string{
	".html": "text/html; charset=UTF-8",
	".htm":  "text/html; charset=UTF-8",
	".css":  "text/css; charset=UTF-8",
	".js":   "text/javascript; charset=UTF-8",
	".json": "application/json; charset=UTF-8",
	".xml":  "application/xml; charset=UTF-8",
	".txt":  "text/plain; charset=UTF-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
}

const defaultContentType = "application/octet-stream"
