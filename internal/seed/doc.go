// Package seed loads organization fixtures written in CUE and applies them
// through the engine.
//
// A fixture names an organization and declares members, projects and tasks
// keyed by short labels. Tasks refer to projects and to each other by label;
// Apply resolves labels to generated ids. Fixtures are validated against the
// embedded #Fixture schema before anything is written:
//
//	organization: "acme"
//	member: alice: name: "Alice"
//	project: web: name: "Website"
//	task: design: {title: "Design", project: "web", status: "completed"}
//	task: build: {title: "Build", project: "web", prerequisites: ["design"]}
//
// Status is reached by walking the workflow from pending, so every seeded
// task has a history that verifies.
package seed
