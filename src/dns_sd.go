package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Announce the control protocol over DNS-SD, so a GUI on
 *		the local network doesn't need an IP and port typed in.
 *
 * Description:	Generalizes dns_sd.go/dns_sd_common.go's pure-Go
 *		brutella/dnssd responder from announcing
 *		"_kiss-tnc._tcp" to announcing this daemon's control
 *		socket as "_daqplayer._tcp", keyed off Config's
 *		DNSSDName/DNSSDEnabled/ControlPort instead of the
 *		teacher's misc_config_s/kiss_port.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"os"
	"strings"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

// DNSSDServiceType is the service type advertised for the control
// protocol's TCP listener.
const DNSSDServiceType = "_daqplayer._tcp"

// AnnounceDNSSD starts a DNS-SD responder advertising cfg's control
// port under cfg.DNSSDName (or a hostname-derived default), and logs
// (without blocking startup) if announcement fails. Does nothing if
// cfg.DNSSDEnabled is false. ctx governs the responder's lifetime.
func AnnounceDNSSD(ctx context.Context, cfg Config, logger *log.Logger) {
	if !cfg.DNSSDEnabled {
		return
	}

	name := cfg.DNSSDName
	if name == "" {
		name = dnssdDefaultServiceName()
	}

	svcCfg := dnssd.Config{
		Name: name,
		Type: DNSSDServiceType,
		Port: cfg.ControlPort,
	}

	sv, err := dnssd.NewService(svcCfg)
	if err != nil {
		logger.Error("dns-sd: failed to create service", "err", err)
		return
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		logger.Error("dns-sd: failed to create responder", "err", err)
		return
	}

	if _, err := rp.Add(sv); err != nil {
		logger.Error("dns-sd: failed to add service", "err", err)
		return
	}

	logger.Info("dns-sd: announcing control protocol", "port", cfg.ControlPort, "name", name)

	go func() {
		if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
			logger.Error("dns-sd: responder error", "err", err)
		}
	}()
}

// dnssdDefaultServiceName returns "daqplayer on <hostname>", or just
// "daqplayer" if the hostname can't be read.
func dnssdDefaultServiceName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "daqplayer"
	}
	hostname, _, _ = strings.Cut(hostname, ".")
	return "daqplayer on " + hostname
}
