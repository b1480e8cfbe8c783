// Package rate implements Redis fixed-window counters. The mock API uses it
// to throttle failed sign-ins and refresh storms the way a real backend would.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Keys:
//   - <prefix>:login:<email> for failed sign-ins
//   - <prefix>:refresh:<subject> for refresh exchanges
package rate
