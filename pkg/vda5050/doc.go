// Package vda5050 defines the VDA5050 message model and topic conventions
// used on the wire between master control and AGVs: typed payloads for the
// five message categories, a topic builder for the
// {interfaceName}/v{major}/{manufacturer}/{serialNumber}/{category} namespace,
// and a tolerant decoder that never discards undecodable payloads.
package vda5050
