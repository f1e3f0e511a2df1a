package security

import "regexp"

// commandPattern pairs a dangerous-command regex with the risk tier it
// represents, re-bucketing the binary allow/deny corpus used elsewhere in
// the tool layer into the five-level Risk scale.
type commandPattern struct {
	risk    Risk
	pattern *regexp.Regexp
}

// commandPatterns is checked in full; the highest matching tier wins. Sourced from
// OWASP Agentic AI Top 10, MITRE ATT&CK, and known agent-to-RCE jailbreaks
// (e.g. CVE-2025-66032-style filter bypasses).
var commandPatterns = []commandPattern{
	// ── Critical: irreversible destruction, privilege-root escape ──
	{RiskCritical, regexp.MustCompile(`\brm\s+-[rf]{1,2}\b`)},
	{RiskCritical, regexp.MustCompile(`\brm\s+.*--recursive`)},
	{RiskCritical, regexp.MustCompile(`\brm\s+.*--force`)},
	{RiskCritical, regexp.MustCompile(`\bdel\s+/[fq]\b`)},
	{RiskCritical, regexp.MustCompile(`\brmdir\s+/s\b`)},
	{RiskCritical, regexp.MustCompile(`\b(mkfs|diskpart)\b|\bformat\s`)},
	{RiskCritical, regexp.MustCompile(`\bdd\s+if=`)},
	{RiskCritical, regexp.MustCompile(`>\s*/dev/sd[a-z]\b`)},
	{RiskCritical, regexp.MustCompile(`\b(shutdown|reboot|poweroff)\b`)},
	{RiskCritical, regexp.MustCompile(`:\(\)\s*\{.*\};\s*:`)}, // fork bomb
	{RiskCritical, regexp.MustCompile(`/var/run/docker\.sock|docker\.(sock|socket)`)},
	{RiskCritical, regexp.MustCompile(`/proc/sys/(kernel|fs|net)/`)},
	{RiskCritical, regexp.MustCompile(`/sys/(kernel|fs|class|devices)/`)},

	// ── High: remote code execution, privilege escalation, exfiltration ──
	{RiskHigh, regexp.MustCompile(`\bcurl\b.*\|\s*(ba)?sh\b`)},
	{RiskHigh, regexp.MustCompile(`\bwget\b.*-O\s*-\s*\|\s*(ba)?sh\b`)},
	{RiskHigh, regexp.MustCompile(`\b(nc|ncat|netcat)\b.*-[el]\b`)},
	{RiskHigh, regexp.MustCompile(`\bsocat\b`)},
	{RiskHigh, regexp.MustCompile(`\bopenssl\b.*s_client`)},
	{RiskHigh, regexp.MustCompile(`/dev/tcp/`)},
	{RiskHigh, regexp.MustCompile(`\bsudo\b`)},
	{RiskHigh, regexp.MustCompile(`\bsu\s+-`)},
	{RiskHigh, regexp.MustCompile(`\bnsenter\b`)},
	{RiskHigh, regexp.MustCompile(`\bunshare\b`)},
	{RiskHigh, regexp.MustCompile(`\b(mount|umount)\b`)},
	{RiskHigh, regexp.MustCompile(`\b(capsh|setcap|getcap)\b`)},
	{RiskHigh, regexp.MustCompile(`\bLD_PRELOAD\s*=`)},
	{RiskHigh, regexp.MustCompile(`\bDYLD_INSERT_LIBRARIES\s*=`)},
	{RiskHigh, regexp.MustCompile(`\b(xmrig|cpuminer|minerd|cgminer|bfgminer|ethminer|nbminer|t-rex|phoenixminer|lolminer|gminer|claymore)\b`)},
	{RiskHigh, regexp.MustCompile(`stratum\+tcp://|stratum\+ssl://`)},
	{RiskHigh, regexp.MustCompile(`\b(nmap|masscan|zmap|rustscan)\b`)},
	{RiskHigh, regexp.MustCompile(`\b(chisel|frp|ngrok|cloudflared|bore|localtunnel)\b`)},
	{RiskHigh, regexp.MustCompile(`\bsed\b.*['"]/e\b`)},
	{RiskHigh, regexp.MustCompile(`\bgit\b.*(--upload-pack|--receive-pack|--exec)=`)},

	// ── Medium: local mutation, persistence, reconnaissance ──
	{RiskMedium, regexp.MustCompile(`\bchmod\s+[0-7]{3,4}\s+/`)},
	{RiskMedium, regexp.MustCompile(`\bchown\b.*\s+/`)},
	{RiskMedium, regexp.MustCompile(`\bmkdir\b`)},
	{RiskMedium, regexp.MustCompile(`\bmv\b`)},
	{RiskMedium, regexp.MustCompile(`\bcrontab\b`)},
	{RiskMedium, regexp.MustCompile(`>\s*~/?\.(bashrc|bash_profile|profile|zshrc)`)},
	{RiskMedium, regexp.MustCompile(`\btee\b.*\.(bashrc|bash_profile|profile|zshrc)`)},
	{RiskMedium, regexp.MustCompile(`\bkill\s+-9\s`)},
	{RiskMedium, regexp.MustCompile(`\b(killall|pkill)\b`)},
	{RiskMedium, regexp.MustCompile(`\b(ssh|scp|sftp)\b.*@`)},
	{RiskMedium, regexp.MustCompile(`^\s*env\s*$`)},
	{RiskMedium, regexp.MustCompile(`^\s*env\s*\|`)},
	{RiskMedium, regexp.MustCompile(`\bprintenv\b`)},
	{RiskMedium, regexp.MustCompile(`^\s*(set|export\s+-p|declare\s+-x)\s*($|\|)`)},
}

// ClassifyCommand returns the highest risk tier matched by any pattern in
// command, or RiskLow if nothing matches.
func ClassifyCommand(command string) Risk {
	risk := RiskLow
	for _, cp := range commandPatterns {
		if cp.pattern.MatchString(command) && cp.risk > risk {
			risk = cp.risk
		}
	}
	return risk
}

// ClassifyPath returns RiskCritical for writes outside workspaceRoot,
// RiskMedium for reads outside it, and RiskNone for anything inside it.
// A blank workspaceRoot disables the check (RiskNone always).
func ClassifyPath(path, workspaceRoot string, write bool) Risk {
	if workspaceRoot == "" {
		return RiskNone
	}
	if withinRoot(path, workspaceRoot) {
		return RiskNone
	}
	if write {
		return RiskCritical
	}
	return RiskMedium
}
