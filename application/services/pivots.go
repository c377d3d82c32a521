package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
)

// PivotEnricher builds investigator search links from a node's label without
// calling any backend
type PivotEnricher struct {
	prober ports.IconProber
}

// NewPivotEnricher creates a pivot enricher. The prober, if any, confirms
// domain favicons before they are linked.
func NewPivotEnricher(prober ports.IconProber) *PivotEnricher {
	return &PivotEnricher{prober: prober}
}

// Links returns the pivot attachments for a node snapshot
func (p *PivotEnricher) Links(ctx context.Context, node entities.Node) []entities.Attachment {
	label := strings.TrimSpace(node.Label)
	if label == "" || label == node.Type.DisplayName() {
		return nil
	}

	switch node.Type {
	case valueobjects.NodeTypePerson:
		q := url.QueryEscape(label)
		return []entities.Attachment{
			link("Google", "https://www.google.com/search?q="+q),
			link("LinkedIn", "https://www.linkedin.com/search/results/all/?keywords="+q),
			link("HaveIBeenPwned", "https://haveibeenpwned.com/"),
		}
	case valueobjects.NodeTypeIP:
		ip := url.PathEscape(label)
		return []entities.Attachment{
			link("Shodan", "https://www.shodan.io/host/"+ip),
			link("AbuseIPDB", "https://www.abuseipdb.com/check/"+ip),
		}
	case valueobjects.NodeTypeDomain, valueobjects.NodeTypeURL:
		host, ok := CanonicalHost(label)
		if !ok || p.prober == nil {
			return nil
		}
		favicon := FaviconURL(host)
		if found, err := p.prober.Probe(ctx, favicon); err != nil || !found {
			return nil
		}
		return []entities.Attachment{link("favicon", favicon)}
	}
	return nil
}

func link(label, value string) entities.Attachment {
	return entities.Attachment{Kind: valueobjects.AttachmentLink, Value: value, Label: label}
}
