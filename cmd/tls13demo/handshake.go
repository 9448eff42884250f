package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tls13 "github.com/paymentlogs/tls13"
)

// freshEntropy draws a fresh, correctly sized entropy buffer from the
// system CSPRNG for the negotiated KEM group. The handshake core never
// reads randomness itself (spec.md's "pure transformation ... from an
// explicit entropy buffer" resource model); the caller owns sourcing
// it, the way this demo stands in for a real record-layer driver.
func freshEntropy(algorithms tls13.Algorithms) ([]byte, error) {
	buf := make([]byte, tls13.EntropyLen(algorithms.Kem))
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

var handshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "Run a full client+server TLS 1.3 handshake in-process",
	RunE:  runHandshake,
}

func init() {
	handshakeCmd.Flags().Bool("psk", false, "negotiate PSK resumption instead of certificate auth")
	if err := viper.BindPFlag("handshake.psk", handshakeCmd.Flags().Lookup("psk")); err != nil {
		panic(err)
	}
}

func runHandshake(cmd *cobra.Command, args []string) error {
	loadRootConfig()
	pskMode := viper.GetBool("handshake.psk")

	algorithms := tls13.Algorithms{
		Hash:      tls13.HashSHA256,
		Aead:      tls13.AeadAES128GCM,
		Signature: tls13.SignatureECDSASecp256r1SHA256,
		Kem:       tls13.KemX25519,
		PSKMode:   pskMode,
	}

	var ticket *tls13.SessionTicket
	var cfg tls13.ServerConfig
	if pskMode {
		ticket = &tls13.SessionTicket{Identity: []byte("demo-ticket"), PSK: []byte("0123456789abcdef0123456789abcdef")}
		cfg = tls13.ServerConfig{
			Algorithms: algorithms,
			LookupTicket: func(identity []byte) ([]byte, bool) {
				if string(identity) == "demo-ticket" {
					return ticket.PSK, true
				}
				return nil, false
			},
		}
	} else {
		certDER, signer, err := generateSelfSignedCert()
		if err != nil {
			return err
		}
		cfg = tls13.ServerConfig{
			Algorithms: algorithms,
			CertDER:    certDER,
			SigningKey: signer,
		}
	}

	clientEntropy, err := freshEntropy(algorithms)
	if err != nil {
		return err
	}
	clientHello, clientState, err := tls13.GetClientHello(algorithms, []byte("example.com"), ticket, clientEntropy)
	if err != nil {
		return err
	}
	slog.Debug("client sent ClientHello", slog.Int("bytes", len(clientHello.Body)))

	serverPostCH, err := tls13.PutClientHello(cfg, clientHello)
	if err != nil {
		return err
	}
	serverEntropy, err := freshEntropy(algorithms)
	if err != nil {
		return err
	}
	serverHello, serverPostSH, err := tls13.GetServerHello(serverPostCH, serverEntropy)
	if err != nil {
		return err
	}
	slog.Debug("server sent ServerHello", slog.Int("bytes", len(serverHello.Body)))

	clientPostSH, err := tls13.PutServerHello(serverHello, clientState)
	if err != nil {
		return err
	}

	var serverPostCV *tls13.ServerPostCertificateVerify
	var clientPostCV *tls13.ClientPostCertificateVerify
	if pskMode {
		encExt, next, err := tls13.GetSkipServerSignature(serverPostSH)
		if err != nil {
			return err
		}
		serverPostCV = next
		clientPostCV, err = tls13.PutSkipServerSignature(encExt, clientPostSH)
		if err != nil {
			return err
		}
	} else {
		encExt, cert, certVerify, next, err := tls13.GetServerSignature(serverPostSH)
		if err != nil {
			return err
		}
		serverPostCV = next
		clientPostCV, err = tls13.PutServerSignature(encExt, cert, certVerify, clientPostSH)
		if err != nil {
			return err
		}
	}

	serverFinished, serverPostSF, err := tls13.GetServerFinished(serverPostCV)
	if err != nil {
		return err
	}
	clientPostSF, err := tls13.PutServerFinished(serverFinished, clientPostCV)
	if err != nil {
		return err
	}

	clientFinished, clientPostCF, err := tls13.GetClientFinished(clientPostSF)
	if err != nil {
		return err
	}
	serverComplete, err := tls13.PutClientFinished(clientFinished, serverPostSF)
	if err != nil {
		return err
	}
	clientRMS, err := tls13.ClientComplete(clientPostCF)
	if err != nil {
		return err
	}

	if hex.EncodeToString(clientRMS) != hex.EncodeToString(serverComplete.ResumptionMasterSecret) {
		return fmt.Errorf("resumption master secret mismatch between client and server")
	}
	slog.Info("handshake complete", slog.Bool("psk_mode", pskMode),
		slog.String("resumption_master_secret", hex.EncodeToString(clientRMS)))
	return nil
}

// generateSelfSignedCert builds a throwaway ECDSA P-256 leaf
// certificate for the demo's certificate-authenticated path, using
// crypto/x509 purely to produce realistic DER input for the core's
// from-scratch parser (cert.go never imports crypto/x509 itself).
func generateSelfSignedCert() ([]byte, *ecdsa.PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "tls13demo"},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).Add(365 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, err
	}
	return der, priv, nil
}
