// Package prefs instantiates the tiered preference cache for each
// preference the app resolves: selected language, study-mode default,
// subscription plan, system configuration, and profile display name.
//
// Every tier shares one local substrate and reaches the backend through the
// authenticated request pipeline. Windows differ by volatility: plan, system
// config, and profile use a five-minute window; language and study mode are
// reference data a user changes rarely and keep a thirty-day window.
//
// Setters validate before any I/O: an unrecognized language tag or plan code
// is rejected with an error wrapping clientkit.ErrValidation and nothing is
// written anywhere.
//
// On sign-in and sign-out the registry calls Service.InvalidateAll so no
// tier serves the previous subject's values.
package prefs
