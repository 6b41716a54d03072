package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// structuralHash digests node identities and edge triples in sorted order so
// that the result does not depend on record ingestion order. Attributes are
// deliberately excluded: two snapshots with the same topology share resolved
// edge weights even when mutable attributes differ.
func structuralHash(s *Snapshot) string {
	lines := make([]string, 0, len(s.nodes)+len(s.edges))
	for i := range s.nodes {
		n := &s.nodes[i]
		lines = append(lines, "n|"+n.ID+"|"+n.Kind.String())
	}
	for i := range s.edges {
		e := &s.edges[i]
		lines = append(lines, "e|"+e.SourceID+"|"+e.Type.String()+"|"+e.TargetID)
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashFingerprint digests an arbitrary set of key=value settings into a short
// stable fingerprint. The weight cache combines it with the structural hash so
// that weight-affecting configuration changes never serve stale entries.
func HashFingerprint(settings map[string]string) string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(settings[k])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
