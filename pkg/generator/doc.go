/*
Package generator prepares the inputs of the external model and SQL
generator and runs it.

The generator reads a cache directory holding the XML schemas, a
build.properties file and a buildtime-conf.xml describing the datasources.
Runner.Prepare writes that directory from the bundle configuration:

	r := generator.NewRunner(cfg, log)
	schemas, err := generator.LocateSchemas("./schema")
	if err := r.Prepare(schemas); err != nil {
		return err
	}
	code, err := r.Run(ctx, "sql:build", generator.RunOptions{Platform: "PgsqlPlatform"}, args...)

Schemas are rewritten on the way in: a database or table without an explicit
package gets one derived from its namespace, prefixed with the location of the
schema relative to the base directory.
*/
package generator
