// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"encoding/json"
	"fmt"

	"github.com/luxfi/corenet/message/codec"
	"github.com/luxfi/corenet/name"
	"github.com/luxfi/corenet/network"
	"github.com/luxfi/corenet/section"
)

// snapshotVersion guards against loading a Snapshot written by an
// incompatible future build.
const snapshotVersion = 1

// Snapshot is everything needed to resume a node after a restart
// without re-bootstrapping from scratch: its identity, lifecycle
// state, and consensus-maintained section/network views. It does not
// capture in-flight consensus engine state — a resumed node rejoins
// gossip and catches up.
type Snapshot struct {
	Self    name.Name
	State   State
	Section section.Section
	Network network.Network
}

// jsonBody is the part of Snapshot that round-trips cleanly through
// encoding/json (keyshare types carry their own MarshalJSON/UnmarshalJSON).
type jsonBody struct {
	Self    name.Name
	State   State
	Section section.Section
	Network network.Network
}

// Marshal encodes snap as a version-prefixed blob: a codec.Packer frame
// around a JSON body. The outer framing is what lets a future on-wire
// snapshot-transfer variant length-prefix this alongside other fields
// without re-parsing JSON to find its end.
func Marshal(snap Snapshot) ([]byte, error) {
	body, err := json.Marshal(jsonBody(snap))
	if err != nil {
		return nil, fmt.Errorf("node: marshal snapshot: %w", err)
	}
	p := codec.NewPacker(len(body) + 8)
	p.PutUint32(snapshotVersion)
	p.PutBlob(body)
	return p.Bytes(), nil
}

// Unmarshal decodes a blob produced by Marshal.
func Unmarshal(raw []byte) (Snapshot, error) {
	u := codec.NewUnpacker(raw)
	version, err := u.GetUint32()
	if err != nil {
		return Snapshot{}, fmt.Errorf("node: unmarshal snapshot version: %w", err)
	}
	if version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("node: unsupported snapshot version %d", version)
	}
	body, err := u.GetBlob()
	if err != nil {
		return Snapshot{}, fmt.Errorf("node: unmarshal snapshot body: %w", err)
	}
	var jb jsonBody
	if err := json.Unmarshal(body, &jb); err != nil {
		return Snapshot{}, fmt.Errorf("node: decode snapshot json: %w", err)
	}
	return Snapshot(jb), nil
}
