package keytool

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

func SHA256CertFingerprints(ctx context.Context, name string) (string, error) {
	return Command("keytool").SHA256CertFingerprints(ctx, name)
}

// Command represents the path to an `keytool` executable.
type Command string

func (c Command) String() string {
	return string(c)
}

// Fingerprints are the certificate fingerprints
// that `keytool -printcert` reports for a signed jar.
type Fingerprints struct {
	SHA1   string
	SHA256 string
}

// PrintCert runs `keytool -printcert -jarfile` against the
// signed jar, .apk or .aab at name.
func (c Command) PrintCert(ctx context.Context, name string) (*Fingerprints, error) {
	var (
		buf = new(bytes.Buffer)
		//nolint:gosec
		cmd = exec.CommandContext(ctx, c.String(), "-printcert", "-jarfile", name)
	)

	cmd.Stdout = buf

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	return ParseFingerprints(buf)
}

func (c Command) SHA256CertFingerprints(ctx context.Context, name string) (string, error) {
	fingerprints, err := c.PrintCert(ctx, name)
	if err != nil {
		return "", err
	}

	return fingerprints.SHA256, nil
}

// ParseFingerprints reads the output of `keytool -printcert` and
// returns the first certificate's fingerprints.
func ParseFingerprints(r io.Reader) (*Fingerprints, error) {
	var (
		fingerprints = &Fingerprints{}
		scanner      = bufio.NewScanner(r)
	)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "SHA1:":
			if fingerprints.SHA1 == "" {
				fingerprints.SHA1 = fields[1]
			}
		case "SHA256:":
			if fingerprints.SHA256 == "" {
				fingerprints.SHA256 = fields[1]
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if fingerprints.SHA256 == "" {
		return nil, fmt.Errorf("sha256 cert fingerprints not found")
	}

	return fingerprints, nil
}
