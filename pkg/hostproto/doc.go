// Package hostproto implements the host side of the wire protocol
// pkg/bootcore's Dispatcher speaks: packaging a plaintext firmware
// image into the authenticated, encrypted frame stream the device
// expects, and driving that stream across a bootcore.ChannelSet.
//
// Nothing here runs on the device. It exists so cmd/hostupdate, tests,
// and the local simulator's counterpart all agree on exactly one wire
// encoder.
package hostproto
