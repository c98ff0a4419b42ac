package banner

import (
	"fmt"
	"io"
	"strings"

	"github.com/naughtyden-us/naughty-den/pkg/config"
)

const banner = `
 _   _                   _     _           ____             
| \ | | __ _ _   _  __ _| |__ | |_ _   _  |  _ \  ___ _ __  
|  \| |/ _' | | | |/ _' | '_ \| __| | | | | | | |/ _ \ '_ \ 
| |\  | (_| | |_| | (_| | | | | |_| |_| | | |_| |  __/ | | |
|_| \_|\__,_|\__,_|\__, |_| |_|\__|\__, | |____/ \___|_| |_|
                   |___/           |___/                    
`

// Print writes the banner and a short readiness checklist to w.
func Print(w io.Writer, eff config.EffectiveConfigResult, role, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Role:     %s\n", role)
	fmt.Fprintf(w, "Listen:   %s\n", addr)
	fmt.Fprintf(w, "DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	fmt.Fprintf(w, "Config:   %s\n", src)

	cfg := eff.Config
	if cfg == nil {
		return
	}

	fmt.Fprintln(w, "\n== Production? =================================================")
	if strings.TrimSpace(cfg.Auth.TokenSecret) != "" {
		fmt.Fprintln(w, "- Custom token secret: OK")
	} else {
		fmt.Fprintln(w, "- Custom token secret: MISSING (custom-token sign in disabled)")
	}
	if strings.TrimSpace(cfg.Verification.APIKey) != "" {
		fmt.Fprintf(w, "- Verification: OK (%s)\n", cfg.Verification.Host)
	} else {
		fmt.Fprintln(w, "- Verification: MISSING api key (sessions will fail)")
	}
	if len(cfg.Security.CORS.AllowedOrigins) > 0 {
		fmt.Fprintf(w, "- CORS origins: %s\n", strings.Join(cfg.Security.CORS.AllowedOrigins, ","))
	} else {
		fmt.Fprintln(w, "- CORS origins: none (same-origin only)")
	}
	static, dynamic := cfg.CacheNames()
	fmt.Fprintf(w, "- Cache partitions: %s, %s\n", static, dynamic)
	if cfg.Offline.Sync.Enabled {
		fmt.Fprintf(w, "- Background sync: enabled (cron=%s)\n", cfg.Offline.Sync.Cron)
	} else {
		fmt.Fprintln(w, "- Background sync: disabled")
	}
	fmt.Fprintf(w, "- Upload limit: %s\n", cfg.Uploads.MaxSize)
	fmt.Fprintln(w)
}
