// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the configuration a node is started with:
// section-size policy, genesis/first-node parameters, and hard-coded
// bootstrap contacts.
package config

import "errors"

// ErrSafeSectionSizeTooSmall is returned by Valid when SafeSectionSize
// is smaller than ElderSize, which would make split impossible to
// ever satisfy while retaining a full set of elders.
var ErrSafeSectionSizeTooSmall = errors.New("config: safe_section_size must be >= elder_size")

// ErrMinSectionSizeTooSmall is returned by Valid when the dev override
// for minimum section size is smaller than ElderSize.
var ErrMinSectionSizeTooSmall = errors.New("config: dev.min_section_size must be >= elder_size")

// NetworkParams holds the network-wide sizing policy that every node
// in a running network must agree on.
type NetworkParams struct {
	// ElderSize is the number of elders a section maintains.
	ElderSize int
	// SafeSectionSize is the minimum mature-member count each half of a
	// split must retain.
	SafeSectionSize int
	// RecommendedSectionSize is a target used to decide when a section
	// is healthy enough to accept relocations from neighbours.
	RecommendedSectionSize int
}

// DefaultNetworkParams returns the standard production sizing policy.
func DefaultNetworkParams() NetworkParams {
	return NetworkParams{
		ElderSize:              8,
		SafeSectionSize:        8,
		RecommendedSectionSize: 15,
	}
}

// DevOverrides relaxes NetworkParams for local development/testing
// networks with few nodes.
type DevOverrides struct {
	// MinSectionSize, if nonzero, overrides SafeSectionSize for test
	// networks that can't field a full-size section.
	MinSectionSize int
}

// TransportConfig configures how a node reaches the network.
type TransportConfig struct {
	// HardCodedContacts are bootstrap addresses tried on startup before
	// any peer has been discovered via gossip.
	HardCodedContacts []string
}

// Config is a node's full startup configuration.
type Config struct {
	// First marks this node as the genesis node of a brand new network
	// (it is the network's sole elder at a one-key chain until others
	// join).
	First bool

	Network   NetworkParams
	Dev       DevOverrides
	Transport TransportConfig
}

// Default returns a Config for joining an existing network via
// contacts.
func Default(contacts []string) Config {
	return Config{
		Network:   DefaultNetworkParams(),
		Transport: TransportConfig{HardCodedContacts: contacts},
	}
}

// Genesis returns a Config for starting a brand new network as its
// first node.
func Genesis() Config {
	c := Default(nil)
	c.First = true
	return c
}

// Valid reports whether c's values are internally consistent.
func (c Config) Valid() error {
	if c.Network.SafeSectionSize < c.Network.ElderSize {
		return ErrSafeSectionSizeTooSmall
	}
	if c.Dev.MinSectionSize != 0 && c.Dev.MinSectionSize < c.Network.ElderSize {
		return ErrMinSectionSizeTooSmall
	}
	return nil
}

// EffectiveSafeSectionSize returns the dev override if set, else the
// network's configured SafeSectionSize.
func (c Config) EffectiveSafeSectionSize() int {
	if c.Dev.MinSectionSize != 0 {
		return c.Dev.MinSectionSize
	}
	return c.Network.SafeSectionSize
}
