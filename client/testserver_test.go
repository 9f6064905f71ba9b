// Copyright 2021 Converter Systems LLC. All rights reserved.

package client_test

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/awcullen/uacore/server"
	"github.com/awcullen/uacore/ua"
	"golang.org/x/crypto/bcrypt"
)

const (
	SoftwareVersion = "0.9.0"
)

var (
	demoFolder = ua.ParseNodeID("ns=2;s=Demo")
	temp0      = ua.ParseNodeID("ns=2;s=Temp0")
	setpoint   = ua.ParseNodeID("ns=2;s=Setpoint")
	enable     = ua.ParseNodeID("ns=2;s=Enable")

	// enableCalls counts the invocations of the Enable method.
	enableCalls atomic.Int32
)

// NewTestServer returns a server listening on a free port of the loopback interface.
func NewTestServer() (*server.Server, net.Listener, error) {

	// userids for testing
	hashes := map[string]string{}
	for user, password := range map[string]string{"root": "secret", "user1": "password"} {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), 8)
		if err != nil {
			return nil, nil, err
		}
		hashes[user] = string(hash)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, err
	}

	// create server
	srv, err := server.New(
		"opc.tcp://"+l.Addr().String(),
		server.WithBuildInfo(
			ua.BuildInfo{
				ProductURI:       "http://github.com/awcullen/uacore",
				ManufacturerName: "awcullen",
				ProductName:      "testserver",
				SoftwareVersion:  SoftwareVersion,
			}),
		server.WithAuthenticateUserNameIdentityFunc(server.BcryptUserNameIdentityAuthenticator(hashes)),
		server.WithAnonymousIdentity(true),
	)
	if err != nil {
		l.Close()
		return nil, nil, err
	}

	nm := srv.NamespaceManager()
	ns := nm.Add("urn:awcullen:uacore:demo")
	now := time.Now()
	if err := nm.AddNodes(ua.ObjectIDObjectsFolder,
		server.NewFolderNode(demoFolder, ua.NewQualifiedName(ns, "Demo"), ua.NewLocalizedText("Demo", ""), ua.NewLocalizedText("", "")),
	); err != nil {
		l.Close()
		return nil, nil, err
	}

	method := server.NewMethodNode(
		enable,
		ua.NewQualifiedName(ns, "Enable"),
		ua.NewLocalizedText("Enable", ""),
		ua.NewLocalizedText("Enables the demo.", ""),
		[]ua.Argument{ua.NewArgument("Enabled", ua.VariantTypeBoolean, "")},
		[]ua.Argument{ua.NewArgument("Result", ua.VariantTypeString, "")},
	)
	method.SetCallMethodHandler(func(ctx context.Context, inputs []ua.Variant) ([]ua.Variant, error) {
		enableCalls.Add(1)
		if inputs[0].Value().(bool) {
			return []ua.Variant{ua.NewVariantString("enabled")}, nil
		}
		return []ua.Variant{ua.NewVariantString("disabled")}, nil
	})

	if err := nm.AddNodes(demoFolder,
		server.NewVariableNode(temp0, ua.NewQualifiedName(ns, "Temp0"), ua.NewLocalizedText("Temp0", ""), ua.NewLocalizedText("", ""),
			ua.NewDataValue(ua.NewVariantDouble(0), ua.Good, now, now), ua.VariantTypeDouble, ua.AccessLevelsCurrentRead|ua.AccessLevelsCurrentWrite),
		server.NewVariableNode(setpoint, ua.NewQualifiedName(ns, "Setpoint"), ua.NewLocalizedText("Setpoint", ""), ua.NewLocalizedText("", ""),
			ua.NewDataValue(ua.NewVariantDouble(42), ua.Good, now, now), ua.VariantTypeDouble, ua.AccessLevelsCurrentRead),
		method,
	); err != nil {
		l.Close()
		return nil, nil, err
	}
	return srv, l, nil
}
