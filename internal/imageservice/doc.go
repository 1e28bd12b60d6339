// SPDX-License-Identifier: MPL-2.0

// Package imageservice wraps the host's image-servicing facility: mounting
// and dismounting offline bootable images and editing their offline
// configuration hives. The concrete implementations shell out to a
// configurable servicing tool; callers depend on the Servicer and
// HiveEditor interfaces so the workflow can be tested with fakes.
package imageservice
