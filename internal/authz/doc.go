// Package authz resolves a user's roles into an immutable claims snapshot
// and answers navigation questions against it.
//
// The two aggregation axes are deliberately asymmetric: permissions are
// the union over every assigned role, while allowed pages and the default
// landing page come from the primary role alone. Claims are computed at
// login or on an explicit refresh and are never updated in place, so a
// role edit reaches a user only after their next resolution.
package authz
