// Package appdetect classifies remote endpoints into an application
// descriptor using static domain/port tables, an IP→app cache populated
// by passive observation, and a precedence chain over SNI/DNS/cache/port,
// per spec.md §4.8.
package appdetect

// Descriptor names the application and category assigned to a flow.
type Descriptor struct {
	App      string
	Category string
}

// Unknown is the default descriptor when no table entry matches.
var Unknown = Descriptor{App: "Unknown", Category: "Other"}

// domainPattern is one entry of the ordered substring table; first hit
// wins, per spec.md §4.8.
type domainPattern struct {
	substr string
	desc   Descriptor
}

// domainPatterns is the ordered domain/SNI substring table from spec.md
// §6.1. Order matters: more specific patterns are listed before broader
// ones that might otherwise shadow them.
var domainPatterns = []domainPattern{
	{"facebook", Descriptor{"Facebook", "Social Media"}},
	{"instagram", Descriptor{"Instagram", "Social Media"}},
	{"twitter", Descriptor{"Twitter", "Social Media"}},
	{"linkedin", Descriptor{"LinkedIn", "Social Media"}},
	{"tiktok", Descriptor{"TikTok", "Social Media"}},
	{"reddit", Descriptor{"Reddit", "Social Media"}},
	{"youtube", Descriptor{"YouTube", "Video"}},
	{"netflix", Descriptor{"Netflix", "Video"}},
	{"twitch", Descriptor{"Twitch", "Video"}},
	{"vimeo", Descriptor{"Vimeo", "Video"}},
	{"hulu", Descriptor{"Hulu", "Video"}},
	{"disneyplus", Descriptor{"Disney+", "Video"}},
	{"steampowered", Descriptor{"Steam", "Gaming"}},
	{"steamcontent", Descriptor{"Steam", "Gaming"}},
	{"epicgames", Descriptor{"Epic Games", "Gaming"}},
	{"xboxlive", Descriptor{"Xbox Live", "Gaming"}},
	{"playstation", Descriptor{"PlayStation Network", "Gaming"}},
	{"riotgames", Descriptor{"Riot Games", "Gaming"}},
	{"amazonaws", Descriptor{"AWS", "Cloud"}},
	{"azure", Descriptor{"Azure", "Cloud"}},
	{"googleusercontent", Descriptor{"Google Cloud", "Cloud"}},
	{"googleapis", Descriptor{"Google Cloud", "Cloud"}},
	{"googlevideo", Descriptor{"YouTube", "Video"}},
	{"google.com", Descriptor{"Google", "Cloud"}},
	{"digitalocean", Descriptor{"DigitalOcean", "Cloud"}},
	{"dropbox", Descriptor{"Dropbox", "Cloud"}},
	{"icloud", Descriptor{"iCloud", "Cloud"}},
	{"cloudflare", Descriptor{"Cloudflare", "CDN"}},
	{"akamai", Descriptor{"Akamai", "CDN"}},
	{"fastly", Descriptor{"Fastly", "CDN"}},
	{"discord", Descriptor{"Discord", "Messaging"}},
	{"slack", Descriptor{"Slack", "Messaging"}},
	{"telegram", Descriptor{"Telegram", "Messaging"}},
	{"whatsapp", Descriptor{"WhatsApp", "Messaging"}},
	{"signal.org", Descriptor{"Signal", "Messaging"}},
	{"zoom.us", Descriptor{"Zoom", "Messaging"}},
	{"teams.microsoft", Descriptor{"Microsoft Teams", "Messaging"}},
	{"spotify", Descriptor{"Spotify", "Music"}},
	{"soundcloud", Descriptor{"SoundCloud", "Music"}},
	{"applemusic", Descriptor{"Apple Music", "Music"}},
	{"amazon.com", Descriptor{"Amazon", "Shopping"}},
	{"ebay", Descriptor{"eBay", "Shopping"}},
	{"alipay", Descriptor{"Alipay", "Finance"}},
	{"paypal", Descriptor{"PayPal", "Finance"}},
	{"stripe", Descriptor{"Stripe", "Finance"}},
	{"coinbase", Descriptor{"Coinbase", "Finance"}},
	{"github", Descriptor{"GitHub", "Development"}},
	{"gitlab", Descriptor{"GitLab", "Development"}},
	{"npmjs", Descriptor{"npm", "Development"}},
	{"pypi.org", Descriptor{"PyPI", "Development"}},
	{"docker.io", Descriptor{"Docker Hub", "Development"}},
	{"openvpn", Descriptor{"OpenVPN", "VPN"}},
	{"nordvpn", Descriptor{"NordVPN", "VPN"}},
	{"expressvpn", Descriptor{"ExpressVPN", "VPN"}},
	{"wireguard", Descriptor{"WireGuard", "VPN"}},
	{"x.com", Descriptor{"Twitter", "Social Media"}},
}

// portTable maps well-known and ecosystem-specific ports to an app
// descriptor, per spec.md §6.1.
var portTable = map[uint16]Descriptor{
	21:    {"FTP", "Other"},
	22:    {"SSH", "Development"},
	25:    {"SMTP", "Other"},
	53:    {"DNS", "Other"},
	80:    {"HTTP", "Other"},
	123:   {"NTP", "Other"},
	143:   {"IMAP", "Other"},
	443:   {"HTTPS", "Other"},
	465:   {"SMTPS", "Other"},
	587:   {"SMTP Submission", "Other"},
	993:   {"IMAPS", "Other"},
	995:   {"POP3S", "Other"},
	3306:  {"MySQL", "Development"},
	5432:  {"PostgreSQL", "Development"},
	6379:  {"Redis", "Development"},
	8080:  {"HTTP Proxy", "Other"},
	8443:  {"HTTPS Alt", "Other"},
	27017: {"MongoDB", "Development"},
	50051: {"gRPC", "Development"},
}
