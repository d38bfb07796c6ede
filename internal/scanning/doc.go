// Package scanning provides the port scanning engine for portscout.
//
// A scan probes a list of ports on one resolved target. Each port becomes a
// job; jobs run over a bounded worker pool and their results are collected
// into a Report sorted by port number.
//
// # Scan Types
//
// The probing technique is chosen by ScanType and looked up in a Registry:
//   - "tcp": full TCP connect, no privileges required
//   - "udp": empty datagram, any reply or ICMP port-unreachable counts as open
//   - "semi-open": TCP SYN probe delegated to nmap, requires raw socket rights
//
// udp and semi-open are refused before any job starts when the process lacks
// raw socket privilege. semi-open also checks that the nmap binary exists.
//
// # Usage
//
//	tgt, err := target.NewResolver().Resolve(ctx, "scanme.example.org")
//	if err != nil {
//		return err
//	}
//	portList, err := ports.Resolve("1-1024")
//	if err != nil {
//		return err
//	}
//
//	opts := scanning.DefaultOptions()
//	opts.DetectService = true
//
//	report, err := scanning.NewEngine().Run(ctx, tgt, portList, opts)
//	if err != nil {
//		os.Exit(errors.ExitCode(err))
//	}
//	fmt.Println(report)
//
// # Results
//
// A probe that fails with an unexpected error is recorded as closed with no
// service or banner, and the scan continues. The same holds for a probe that
// panics. Closed and filtered ports appear in the report only when
// Options.Verbose is set; otherwise the report lists open ports.
//
// Cancelling the context stops dispatch. Ports never probed are recorded as
// filtered and Report.Interrupted is set, so TotalPorts always equals the
// number of ports requested.
package scanning
