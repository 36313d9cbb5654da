// Package port provides the cores the kernel runs on.
//
// Sim is a simulated single core for the host: every kernel thread is a
// goroutine and only the one holding the core runs. CortexM is the TinyGo
// port for ARMv7-M parts, switching threads from PendSV.
package port
