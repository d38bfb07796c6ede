package services

import "regexp"

// Signature maps a banner pattern to a service label.
type Signature struct {
	Service string
	Pattern *regexp.Regexp
}

// Matches reports whether banner carries this signature.
func (s Signature) Matches(banner string) bool {
	return s.Pattern.MatchString(banner)
}

// defaultSignatures is evaluated top to bottom and the first match wins, so
// more specific patterns must come before the generic ones they overlap with
// (FTP and SMTP both greet with "220").
var defaultSignatures = []Signature{
	{"SSH", regexp.MustCompile(`^SSH-\d`)},
	{"HTTP", regexp.MustCompile(`^HTTP/\d`)},
	{"FTP", regexp.MustCompile(`(?i)^220[ -].*(ftp|filezilla)`)},
	{"SMTP", regexp.MustCompile(`(?i)^220[ -].*(smtp|mail|postfix|exim|sendmail)`)},
	{"POP3", regexp.MustCompile(`^\+OK`)},
	{"IMAP", regexp.MustCompile(`^\* (OK|PREAUTH)`)},
	{"VNC", regexp.MustCompile(`^RFB \d{3}\.\d{3}`)},
	{"MySQL", regexp.MustCompile(`(?i)mysql|mariadb`)},
	{"Redis", regexp.MustCompile(`^-(ERR|NOAUTH)|(?i:redis)`)},
	{"Memcached", regexp.MustCompile(`^VERSION \d`)},
	{"XMPP", regexp.MustCompile(`<stream:stream`)},
	{"AMQP", regexp.MustCompile(`^AMQP`)},
}

// wellKnownPorts is the fallback used when no banner signature matches.
var wellKnownPorts = map[uint16]string{
	7:     "Echo",
	20:    "FTP-Data",
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	67:    "DHCP",
	69:    "TFTP",
	80:    "HTTP",
	88:    "Kerberos",
	110:   "POP3",
	111:   "RPC",
	123:   "NTP",
	135:   "MSRPC",
	137:   "NetBIOS-NS",
	139:   "NetBIOS",
	143:   "IMAP",
	161:   "SNMP",
	389:   "LDAP",
	443:   "HTTPS",
	445:   "SMB",
	465:   "SMTPS",
	514:   "Syslog",
	587:   "Submission",
	631:   "IPP",
	636:   "LDAPS",
	993:   "IMAPS",
	995:   "POP3S",
	1433:  "MSSQL",
	1521:  "Oracle",
	1723:  "PPTP",
	1883:  "MQTT",
	2049:  "NFS",
	3306:  "MySQL",
	3389:  "RDP",
	5060:  "SIP",
	5432:  "PostgreSQL",
	5672:  "AMQP",
	5900:  "VNC",
	6379:  "Redis",
	8080:  "HTTP-Proxy",
	8443:  "HTTPS-Alt",
	8888:  "HTTP-Alt",
	9200:  "Elasticsearch",
	11211: "Memcached",
	27017: "MongoDB",
}
